package postprocess

import "testing"

type cleanCase struct {
	name     string
	input    string
	expected string
}

func runCases(t *testing.T, fnName string, fn func(string) string, tests []cleanCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fn(tt.input); got != tt.expected {
				t.Errorf("%s(%q) = %q, want %q", fnName, tt.input, got, tt.expected)
			}
		})
	}
}

func TestRemoveThinkingBlocks(t *testing.T) {
	runCases(t, "removeThinkingBlocks", removeThinkingBlocks, []cleanCase{
		{"empty", "", ""},
		{"plain translation", "溶解氧浓度降低。", "溶解氧浓度降低。"},
		{"think block", "<think>用户要求翻译</think>溶解氧浓度降低。", "溶解氧浓度降低。"},
		{"upper-case tag", "<THINKING>plan</THINKING>\n## 方法", "## 方法"},
		{"multi-line block", "<thinking>\nstep one\nstep two\n</thinking>\n正文", "正文"},
		{"several blocks", "<reasoning>a</reasoning>表 1<reflection>b</reflection>", "表 1"},
		{"truncated at end", "## 结果\n<think>the model was cut", "## 结果"},
		{"only truncated", "<reasoning>never finished", ""},
	})
}

func TestRemoveInstructionEchoes(t *testing.T) {
	runCases(t, "removeInstructionEchoes", removeInstructionEchoes, []cleanCase{
		{"empty", "", ""},
		{"no echo", "溶解氧浓度降低。", "溶解氧浓度降低。"},
		{"here's the translation", "Here's the translation: 溶解氧", "溶解氧"},
		{"here is the translated text", "Here is the translated text:\n# 标题", "# 标题"},
		{"the translation", "The translation: 水质", "水质"},
		{"sure prefix", "Sure, here's the polished translation: 水质", "水质"},
		{"of course prefix", "Of course here is the refined translation: 水质", "水质"},
		{"chinese label", "译文：溶解氧浓度", "溶解氧浓度"},
		{"chinese label with prefix", "以下是翻译结果: 溶解氧浓度", "溶解氧浓度"},
		{"chinese label before heading", "中文翻译：\n## 摘要", "## 摘要"},
		{"no colon", "The translation of PAHs is discussed below.", "The translation of PAHs is discussed below."},
		{"not at start", "表 2: Here's the translation: x", "表 2: Here's the translation: x"},
	})
}

func TestRemoveQuoteWrapping(t *testing.T) {
	runCases(t, "removeQuoteWrapping", removeQuoteWrapping, []cleanCase{
		{"empty", "", ""},
		{"single rune", "水", "水"},
		{"no quotes", "pH 值", "pH 值"},
		{"double quotes", "\"溶解氧浓度\"", "溶解氧浓度"},
		{"single quotes", "'pH value'", "pH value"},
		{"guillemets", "«氮循环»", "氮循环"},
		{"curly double quotes", "“氮循环”", "氮循环"},
		{"curly single quotes", "‘氮’", "氮"},
		{"corner brackets", "「溶解氧」", "溶解氧"},
		{"inner whitespace", "\"  水质  \"", "水质"},
		{"mismatched pair", "\"溶解氧'", "\"溶解氧'"},
		{"opening only", "\"溶解氧", "\"溶解氧"},
		{"closing only", "溶解氧\"", "溶解氧\""},
		{"two quotations", "\"酸\"和\"碱\"", "\"酸\"和\"碱\""},
	})
}

func TestRemoveWrapperFence(t *testing.T) {
	runCases(t, "removeWrapperFence", removeWrapperFence, []cleanCase{
		{"markdown fence", "```markdown\n# 标题\n\n正文\n```", "# 标题\n\n正文"},
		{"md fence with trailing space", "```md \n正文\n```", "正文"},
		{"code fence is kept", "```python\nprint(1)\n```", "```python\nprint(1)\n```"},
		{"fence not wrapping everything", "```markdown\na\n```\nmore", "```markdown\na\n```\nmore"},
	})
}

func TestClean(t *testing.T) {
	runCases(t, "Clean", Clean, []cleanCase{
		{"empty", "", ""},
		{"clean text", "溶解氧浓度降低。", "溶解氧浓度降低。"},
		{
			"thinking, echo and quotes",
			"<think>plan</think>Here's the translation:\n\"溶解氧浓度降低\"",
			"溶解氧浓度降低",
		},
		{
			"label and wrapper fence",
			"译文：\n```markdown\n## 方法\n\n样品经过滤后测定。\n```",
			"## 方法\n\n样品经过滤后测定。",
		},
		{"truncated thinking", "## 结果<thinking>unfinished", "## 结果"},
		{"code answer kept", "```python\nprint(1)\n```", "```python\nprint(1)\n```"},
	})
}
