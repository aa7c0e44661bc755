package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/tilawa/backend/internal/analysis/turn"
	"github.com/zhouzirui/tilawa/backend/internal/model/recital"
)

var (
	classifyLang     string
	classifyKeywords string
)

var classifyCmd = &cobra.Command{
	Use:   "classify <text...>",
	Short: "Show how a transcript would be classified",
	Long: `Run the turn classifier over a transcript and print the verdict.

Examples:
  recitetool classify "how did i do"
  recitetool classify --lang ar "خطأ"
  recitetool classify --keywords keywords.yaml --lang tr "hata var mı"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keywords, err := turn.LoadKeywords(classifyKeywords)
		if err != nil {
			return err
		}

		text := strings.Join(args, " ")
		sess := recital.Session{Language: recital.NormalizeCode(classifyLang)}
		verdict := turn.NewClassifier(keywords).Classify(text, sess)

		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", verdict, text)
		return nil
	},
}

func init() {
	classifyCmd.Flags().StringVarP(&classifyLang, "lang", "l", recital.DefaultLanguage, "session language code")
	classifyCmd.Flags().StringVarP(&classifyKeywords, "keywords", "k", "", "YAML keyword override file")
	rootCmd.AddCommand(classifyCmd)
}
