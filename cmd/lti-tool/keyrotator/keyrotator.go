package keyrotator

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/lti-tool/internal/business"
	"github.com/openkcm/lti-tool/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"key-rotator",
		"LTI Tool key rotation job",
		"LTI Tool key rotation job keeps the shared signing key ring rotated and its successor key published",
		buildInfo,
		cmdutils.RunAsService,
		business.KeyRotatorMain,
	)
}
