package apiserver

import (
	"github.com/spf13/cobra"

	"github.com/openkcm/lti-tool/internal/business"
	"github.com/openkcm/lti-tool/internal/cmdutils"
)

func Cmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"api-server",
		"LTI Tool API server",
		"LTI Tool API server hosts the login, launch, message and key set endpoints",
		buildInfo,
		cmdutils.RunAsService,
		business.Main,
	)
}
