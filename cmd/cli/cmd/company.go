package cmd

import (
	"strings"

	"marketcap/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var companyCmd = &cobra.Command{
	Use:   "company [slug]",
	Short: "Look up a company record",
	Long: `Retrieve a company record by slug, including its score, risk flags,
financials, and the sources that asserted it.

Example:
  capctl company acme-industries-srl-14592450`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		slug := args[0]

		client := NewAPIClient(viper.GetString("url"), viper.GetString("token"))

		company, err := client.GetCompany(slug)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == 404 {
				cmd.Printf("Company not found: %s\n", slug)
				return
			}
			cmd.Printf("Error fetching company: %s\n", err)
			return
		}

		printCompany(cmd, company)
	},
}

func printCompany(cmd *cobra.Command, c *api.CompanyResponse) {
	cmd.Printf("%s%s%s\n", colorBold, c.Name, colorReset)
	cmd.Println("──────────────────────────────")

	cmd.Printf("%sSlug:%s       %s\n", colorDim, colorReset, c.Slug)
	if c.TaxID != "" {
		cmd.Printf("%sTax ID:%s     %s\n", colorDim, colorReset, c.TaxID)
	}
	if c.IsSkeleton {
		cmd.Printf("%sRecord:%s     skeleton (not yet enriched)\n", colorDim, colorReset)
	}

	if c.Score != nil {
		cmd.Printf("%sScore:%s      %d", colorDim, colorReset, *c.Score)
		if c.Confidence != nil {
			cmd.Printf(" %s(confidence %d)%s", colorDim, *c.Confidence, colorReset)
		}
		cmd.Println()
	}
	if len(c.RiskFlags) > 0 {
		cmd.Printf("%sRisk flags:%s %s%s%s\n", colorDim, colorReset, colorRed, strings.Join(c.RiskFlags, ", "), colorReset)
	}

	if c.Revenue != nil {
		cmd.Printf("%sRevenue:%s    %d\n", colorDim, colorReset, *c.Revenue)
	}
	if c.Profit != nil {
		cmd.Printf("%sProfit:%s     %d\n", colorDim, colorReset, *c.Profit)
	}
	if c.Employees != nil {
		cmd.Printf("%sEmployees:%s  %d\n", colorDim, colorReset, *c.Employees)
	}
	if c.Website != nil {
		cmd.Printf("%sWebsite:%s    %s\n", colorDim, colorReset, *c.Website)
	}

	cmd.Printf("%sVerified:%s   %s\n", colorDim, colorReset, formatTimeWithRelative(c.VerifiedAt))
	cmd.Printf("%sScored:%s     %s\n", colorDim, colorReset, formatTimeWithRelative(c.ScoredAt))

	if len(c.Sources) > 0 {
		cmd.Println()
		for _, s := range c.Sources {
			cmd.Printf("%s%s:%s confidence=%d last seen %s\n",
				colorDim, s.Source, colorReset, s.Confidence, formatTimeWithRelative(&s.LastSeenAt))
		}
	}
}

func init() {
	rootCmd.AddCommand(companyCmd)
}
