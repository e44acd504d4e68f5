package cmd

import (
	"marketcap/internal/taxid"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [tax_id]",
	Short: "Validate a tax identifier offline",
	Long: `Normalize and checksum-validate a Romanian tax identifier without
contacting any service. Accepts the RO prefix and common formatting noise.

Example:
  capctl check RO14592450
  capctl check "ro 14.592.450"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		raw := args[0]

		normalized, ok := taxid.Normalize(raw)
		if !ok {
			cmd.Printf("%s✗%s %q is not a valid tax identifier\n", colorRed, colorReset, raw)
			return
		}

		cmd.Printf("%s✓%s valid\n", colorGreen, colorReset)
		cmd.Printf("%sCanonical:%s %s\n", colorDim, colorReset, normalized)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
