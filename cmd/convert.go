/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/mdtran/internal/config"
	"github.com/valpere/mdtran/internal/docconv"
)

var (
	convertTranslatedOnly bool
	convertFont           string
	convertEastAsiaFont   string
)

var convertCmd = &cobra.Command{
	Use:   "convert [dir|file]",
	Short: "Convert Markdown documents to DOCX",
	Long: `Convert Markdown documents to DOCX with pandoc, then set the fonts of every
text run (Times New Roman for Latin text, SimSun for Chinese by default).

HTML tables in the Markdown files are rewritten to pipe tables in place
before conversion. Each <name>.docx is written next to its source, with
images extracted into a media directory.

Requires pandoc on PATH (or --pandoc).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}

		ctx, cancel := runContext(cmd)
		defer cancel()

		fonts := docconv.DefaultFontSpec()
		fonts.Default = convertFont
		fonts.EastAsia = convertEastAsiaFont

		cc := docconv.ConverterConfig{
			Pandoc: cfg.Pandoc,
			Fonts:  fonts,
			Logger: logger,
		}
		if convertTranslatedOnly {
			cc.Suffix = cfg.Suffix
		}
		conv := docconv.NewConverter(cc)

		info, err := os.Stat(root)
		if err == nil && !info.IsDir() {
			if _, err := docconv.LookPandoc(cfg.Pandoc); err != nil {
				return err
			}
			out, err := conv.ConvertFile(ctx, root)
			if err != nil {
				return err
			}
			fmt.Printf("Converted %s -> %s\n", root, out)
			return nil
		}

		summary, err := conv.ConvertAll(ctx, root)
		if summary != nil {
			fmt.Printf("Converted %d/%d documents, %d failed\n", summary.Converted, summary.Found, summary.Failed)
		}
		if err != nil {
			return err
		}
		if summary.Found > 0 && summary.Converted == 0 {
			return fmt.Errorf("all %d conversions failed", summary.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)

	d := config.Defaults()
	fs := docconv.DefaultFontSpec()
	f := convertCmd.Flags()
	f.String("pandoc", d.Pandoc, "Pandoc binary")
	f.String("suffix", d.Suffix, "Suffix of translated files")
	f.Duration("timeout", d.Timeout, "Abort the whole run after this long (0 means no limit)")
	f.BoolVar(&convertTranslatedOnly, "translated-only", false, "Convert only translated files (*<suffix>.md)")
	f.StringVar(&convertFont, "font", fs.Default, "Font for Latin text")
	f.StringVar(&convertEastAsiaFont, "east-asia-font", fs.EastAsia, "Font for Chinese, Japanese and Korean text")
}
