//go:build integration

package integration_test

import (
	"context"
	"io/fs"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/openkcm/lti-tool/internal/config"
	"github.com/openkcm/lti-tool/internal/dbtest/valkeytest"
)

type closeFunc func(ctx context.Context)

type infraStat struct {
	ValKeyPort     nat.Port
	ConfigFilePath string
	SocketPath     string
	Procdir        string
	Cfg            config.Config

	closeFuncs []closeFunc
}

func initInfra(t *testing.T, cmdName string) (istat infraStat) {
	t.Helper()

	// The config is read from $PWD/config.yaml, so every process gets its
	// own directory.
	wd, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")
	istat.Procdir = filepath.Join(wd, cmdName+"-test")
	istat.ConfigFilePath = filepath.Join(istat.Procdir, "config.yaml")

	err = os.MkdirAll(istat.Procdir, fs.ModePerm)
	require.NoError(t, err, "failed to create a dir for the process")

	err = os.WriteFile(istat.ConfigFilePath, []byte(validConfig), fs.ModePerm)
	require.NoError(t, err, "failed to write config file")

	err = commoncfg.LoadConfig(&istat.Cfg, nil, istat.Procdir)
	require.NoError(t, err, "failed to load config")

	istat.SocketPath = filepath.Join(istat.Procdir, cmdName+".sock")
	istat.Cfg.HTTP.Address = "unix://" + istat.SocketPath

	return istat
}

func (istat *infraStat) PrepareValKey(t *testing.T) {
	t.Helper()

	vkClient, vkPort, vkTerminate := valkeytest.Start(t.Context())
	vkClient.Close()

	istat.ValKeyPort = vkPort
	istat.closeFuncs = append(istat.closeFuncs, vkTerminate)

	istat.Cfg.SessionStore.Type = config.StoreTypeValKey
	istat.Cfg.ValKey.Host = commoncfg.SourceRef{Source: "embedded", Value: net.JoinHostPort("localhost", vkPort.Port())}
	istat.Cfg.ValKey.Prefix = valkeytest.Prefix("integration")
}

// PrepareConfig writes the test config into ConfigFilePath.
func (istat *infraStat) PrepareConfig(t *testing.T) {
	t.Helper()

	configFile, err := os.Create(istat.ConfigFilePath)
	require.NoError(t, err, "failed to create config file")

	err = yaml.NewEncoder(configFile).Encode(istat.Cfg)
	require.NoError(t, err, "failed to write config")
	configFile.Close()
}

// StartCommand runs the built binary with args inside Procdir until the test
// ends. Output is written to logName next to the test sources.
func (istat *infraStat) StartCommand(t *testing.T, logName string, args ...string) {
	t.Helper()

	currdir, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")

	cmd := exec.Command(filepath.Join(currdir, binary), args...)
	cmd.Dir = istat.Procdir

	cmdOutPath := filepath.Join(currdir, logName)
	cmdOut, err := os.Create(cmdOutPath)
	require.NoError(t, err, "failed to create a log file")

	cmd.Stdout = cmdOut
	cmd.Stderr = cmdOut
	t.Logf("starting an app process. Logs will be saved into %s", cmdOutPath)

	require.NoError(t, cmd.Start(), "could not start command")

	// SIGTERM lets the race and cover instrumentation flush on exit.
	t.Cleanup(func() {
		_ = syscall.Kill(cmd.Process.Pid, syscall.SIGTERM)
		_ = cmd.Wait()
		cmdOut.Close()
	})
}

func (istat *infraStat) WaitForSocket(t *testing.T) {
	t.Helper()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("unix", istat.SocketPath)
		if err != nil {
			return false
		}
		conn.Close()

		return true
	}, 20*time.Second, 100*time.Millisecond, "server did not start listening on %s", istat.SocketPath)
}

func (istat *infraStat) Close(ctx context.Context) {
	os.Remove(istat.ConfigFilePath)
	os.RemoveAll(istat.Procdir)

	for _, close := range istat.closeFuncs {
		close(ctx)
	}
}
