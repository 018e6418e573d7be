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
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/mdtran/internal/chunker"
	"github.com/valpere/mdtran/internal/config"
	"github.com/valpere/mdtran/internal/markdown"
)

var chunksShow bool

var chunksCmd = &cobra.Command{
	Use:   "chunks <file>",
	Short: "Show how a document would be chunked",
	Long: `Split a Markdown document the way translate does and print one line per
chunk, followed by the document's structure. Nothing is sent to a service.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		text := string(data)

		chunks := chunker.Split(text, cfg.ChunkSize)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "#\tSIZE\tLINES\tATOMIC\tSTART")
		for i, c := range chunks {
			fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\n",
				i+1, chunker.Size(c), strings.Count(c, "\n")+1, atomicKinds(c), firstLine(c))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		if chunksShow {
			for i, c := range chunks {
				fmt.Printf("\n----- chunk %d -----\n%s\n", i+1, c)
			}
		}

		blocks := chunker.Blocks(text)
		counts := map[chunker.Kind]int{}
		oversized := 0
		for _, b := range blocks {
			counts[b.Kind]++
			if b.Size > cfg.ChunkSize {
				oversized++
			}
		}

		st := markdown.Inspect(data)
		fmt.Printf("\nChunks: %d (max size %d, %d atomic blocks larger than that)\n", len(chunks), cfg.ChunkSize, oversized)
		fmt.Printf("Blocks: %d lines, %d code blocks, %d tables\n",
			counts[chunker.PlainLine], counts[chunker.CodeBlock], counts[chunker.TableBlock])
		fmt.Printf("Markdown: %d headings, %d paragraphs, %d lists, %d tables, %d code blocks, %d links, %d images, %d HTML blocks, %d footnotes\n",
			st.Headings, st.Paragraphs, st.Lists, st.Tables, st.CodeBlocks, st.Links, st.Images, st.HTMLBlocks, st.Footnotes)
		return nil
	},
}

// atomicKinds lists the code blocks and tables inside a chunk.
func atomicKinds(chunk string) string {
	var kinds []string
	for _, b := range chunker.Blocks(chunk) {
		if b.Kind != chunker.PlainLine {
			kinds = append(kinds, b.Kind.String())
		}
	}
	if len(kinds) == 0 {
		return "-"
	}
	return strings.Join(kinds, ",")
}

func firstLine(chunk string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(chunk), "\n")
	if r := []rune(line); len(r) > 40 {
		line = string(r[:37]) + "..."
	}
	return line
}

func init() {
	rootCmd.AddCommand(chunksCmd)

	chunksCmd.Flags().Int("chunk-size", config.Defaults().ChunkSize, "Maximum chunk size in characters")
	chunksCmd.Flags().BoolVar(&chunksShow, "show", false, "Print the text of every chunk")
}
