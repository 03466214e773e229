package jwks

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/openkcm/lti-tool/internal/business"
	"github.com/openkcm/lti-tool/internal/cmdutils"
	"github.com/openkcm/lti-tool/internal/config"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"jwks",
		"Print the LTI Tool key set",
		"Syncs the shared signing key ring and prints the published key set document",
		buildInfo,
		cmdutils.RunAsJob,
		func(ctx context.Context, cfg *config.Config) error {
			return business.WriteJWKS(ctx, cfg, os.Stdout)
		},
	)
}
