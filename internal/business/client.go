package business

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/openkcm/common-sdk/pkg/commoncfg"

	"github.com/openkcm/lti-tool/internal/config"
)

var errUnknownClientType = errors.New("unknown platform client type")

func loadHTTPClient(conf config.PlatformClient) (*http.Client, error) {
	switch conf.Type {
	case config.ClientTypeMTLS:
		tlsConfig, err := commoncfg.LoadMTLSConfig(conf.MTLS)
		if err != nil {
			return nil, fmt.Errorf("loading mTLS config: %w", err)
		}

		return &http.Client{
			Timeout: conf.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: tlsConfig,
			},
		}, nil
	case config.ClientTypeInsecure, "":
		return &http.Client{Timeout: conf.Timeout}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownClientType, conf.Type)
	}
}
