// Package chunker splits Markdown documents into size-bounded chunks for
// length-limited translation calls. Fenced code blocks and runs of pipe-table
// rows are atomic: they always land inside a single chunk, even when that
// chunk ends up larger than the requested size.
//
// Chunks are contiguous groups of lines. Joining the chunks returned by Split
// with "\n" reproduces the input exactly.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxChunkSize is the chunk size used by the CLI when none is configured.
const DefaultMaxChunkSize = 3000

// Kind classifies a structural unit of a document.
type Kind int

const (
	PlainLine Kind = iota
	CodeBlock
	TableBlock
)

func (k Kind) String() string {
	switch k {
	case CodeBlock:
		return "code"
	case TableBlock:
		return "table"
	default:
		return "line"
	}
}

// Block is one atomic unit of a document: lines[Start:End].
type Block struct {
	Kind  Kind
	Start int
	End   int
	Size  int
}

// Lines returns the number of lines in the block.
func (b Block) Lines() int { return b.End - b.Start }

// Split returns the chunks of text, each at most maxChunkSize characters
// (one separator counted per line) unless a single atomic unit is larger.
// An empty text yields no chunks. maxChunkSize < 1 is treated as 1.
func Split(text string, maxChunkSize int) []string {
	if text == "" {
		return nil
	}
	if maxChunkSize < 1 {
		maxChunkSize = 1
	}

	lines := strings.Split(text, "\n")

	var (
		chunks  []string
		current []string
		size    int
	)

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n"))
			current = nil
			size = 0
		}
	}

	for _, b := range scan(lines) {
		unit := lines[b.Start:b.End]

		if size+b.Size <= maxChunkSize {
			current = append(current, unit...)
			size += b.Size
			continue
		}

		flush()

		if b.Kind != PlainLine || b.Size > maxChunkSize {
			// Structural and oversized units are emitted alone and never
			// merged with what follows.
			chunks = append(chunks, strings.Join(unit, "\n"))
			continue
		}

		current = append(current, unit...)
		size = b.Size
	}
	flush()

	return chunks
}

// Blocks classifies text into its atomic units in document order.
func Blocks(text string) []Block {
	if text == "" {
		return nil
	}
	return scan(strings.Split(text, "\n"))
}

// Size returns the size of a chunk as Split measures it: the character count
// of every line plus one separator per line.
func Size(chunk string) int {
	n := 0
	for _, line := range strings.Split(chunk, "\n") {
		n += lineSize(line)
	}
	return n
}

// scan walks lines once with an index cursor. States are Normal and
// InCodeBlock; table runs are merged by looking ahead one line at a time.
func scan(lines []string) []Block {
	blocks := make([]Block, 0, len(lines))

	i := 0
	for i < len(lines) {
		start := i
		size := lineSize(lines[i])
		kind := PlainLine

		switch {
		case fenceMarker(lines[i]) != "":
			kind = CodeBlock
			marker := fenceMarker(lines[i])
			i++
			for i < len(lines) {
				size += lineSize(lines[i])
				closing := strings.HasPrefix(lines[i], marker)
				i++
				if closing {
					break
				}
			}
		case isTableRow(lines[i]):
			kind = TableBlock
			i++
			for i < len(lines) && isTableRow(lines[i]) {
				size += lineSize(lines[i])
				i++
			}
		default:
			i++
		}

		blocks = append(blocks, Block{Kind: kind, Start: start, End: i, Size: size})
	}

	return blocks
}

// fenceMarker returns "```" or "~~~" when line opens a fenced code block.
func fenceMarker(line string) string {
	switch {
	case strings.HasPrefix(line, "```"):
		return "```"
	case strings.HasPrefix(line, "~~~"):
		return "~~~"
	}
	return ""
}

func isTableRow(line string) bool {
	return strings.HasPrefix(line, "|")
}

func lineSize(line string) int {
	return utf8.RuneCountInString(line) + 1
}
