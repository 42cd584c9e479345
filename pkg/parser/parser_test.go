package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generativeNode(choices ...domain.Choice) domain.Node {
	return domain.Node{
		ID:                 "mystery_deepens",
		Description:        "The mystery deepens",
		RequiresGeneration: true,
		Choices:            choices,
		FallbackContent:    "You decide to dig deeper...",
	}
}

func TestParse_ThreeMarkers(t *testing.T) {
	raw := "The lantern flickers as the door swings open.\n\n" +
		"[Option 1] Step inside\n[Option 2] Call out\n[Option 3] Walk away"

	node := generativeNode(
		domain.Choice{ID: "seek_help", Text: "Seek help", NextNode: "meet_guide"},
	)
	res := Parse(raw, node)

	assert.True(t, res.Confident)
	assert.Equal(t, 3, res.Markers)
	assert.Equal(t, "The lantern flickers as the door swings open.", res.Content)
	require.Len(t, res.Choices, 3)

	assert.Equal(t, "Step inside", res.Choices[0].Text)
	assert.Equal(t, "meet_guide", res.Choices[0].NextNode, "first ordinal maps to the authored choice")
	assert.Equal(t, "alternative_path", res.Choices[1].NextNode)
	assert.Equal(t, "mystery_deepens", res.Choices[2].NextNode)
	assert.Equal(t, "option_2", res.Choices[1].ID)
}

func TestParse_KMarkersYieldKChoices(t *testing.T) {
	for k := 0; k <= 3; k++ {
		t.Run(fmt.Sprintf("k=%d", k), func(t *testing.T) {
			var b strings.Builder
			b.WriteString("Rain hammers the roof of the inn.\n")
			for i := 1; i <= k; i++ {
				fmt.Fprintf(&b, "[Option %d] Choice number %d\n", i, i)
			}

			res := Parse(b.String(), generativeNode())
			if k == 0 {
				assert.False(t, res.Confident)
				assert.Empty(t, res.Choices)
			} else {
				assert.True(t, res.Confident)
				assert.Len(t, res.Choices, k)
			}
			assert.NotContains(t, res.Content, "[Option")
			assert.Equal(t, "Rain hammers the roof of the inn.", res.Content)
		})
	}
}

func TestParse_MarkersOnOneLine(t *testing.T) {
	raw := "Two paths open before you. [Option 1] Left [Option 2] Right"
	res := Parse(raw, generativeNode())

	require.Len(t, res.Choices, 2)
	assert.Equal(t, "Left", res.Choices[0].Text)
	assert.Equal(t, "Right", res.Choices[1].Text)
	assert.Equal(t, "Two paths open before you.", res.Content)
}

func TestParse_ChineseMarkers(t *testing.T) {
	raw := "夜色笼罩着古老的书店。\n[选项1] 翻开那本书\n[选项2] 离开书店"
	res := Parse(raw, generativeNode())

	require.Len(t, res.Choices, 2)
	assert.Equal(t, "翻开那本书", res.Choices[0].Text)
	assert.Equal(t, "夜色笼罩着古老的书店。", res.Content)
}

func TestParse_CaseInsensitive(t *testing.T) {
	res := Parse("Prose.\n[option 1] lower\n[OPTION 2] upper", generativeNode())
	assert.Len(t, res.Choices, 2)
}

func TestParse_StopsAfterThree(t *testing.T) {
	raw := "Prose.\n[Option 1] a\n[Option 2] b\n[Option 3] c\n[Option 1] d"
	res := Parse(raw, generativeNode())

	assert.Len(t, res.Choices, 3)
	assert.Equal(t, 4, res.Markers)
	assert.NotContains(t, res.Content, "[Option")
}

func TestParse_RepeatedOrdinalKeepsFirst(t *testing.T) {
	raw := "Prose.\n[Option 1] a\n[Option 1] b\n[Option 2] c"
	res := Parse(raw, generativeNode())

	require.Len(t, res.Choices, 2)
	assert.Equal(t, "a", res.Choices[0].Text)
	assert.Equal(t, "option_1", res.Choices[0].ID)
	assert.Equal(t, "c", res.Choices[1].Text)
	assert.Equal(t, "option_2", res.Choices[1].ID)
	assert.NotContains(t, res.Content, "[Option")
	assert.NotContains(t, res.Content, "b")
}

func TestParse_OutOfRangeMarkersAreStripped(t *testing.T) {
	raw := "Prose.\n[Option 7] nowhere\n[Option 2] somewhere"
	res := Parse(raw, generativeNode())

	require.Len(t, res.Choices, 1)
	assert.Equal(t, "somewhere", res.Choices[0].Text)
	assert.Equal(t, "Prose.", res.Content)
}

func TestParse_EmptyMarkerTextIgnored(t *testing.T) {
	raw := "Prose.\n[Option 1]   \n[Option 2] real"
	res := Parse(raw, generativeNode())

	require.Len(t, res.Choices, 1)
	assert.Equal(t, "option_2", res.Choices[0].ID)
}

func TestParse_NoMarkersKeepsAuthoredChoices(t *testing.T) {
	authored := []domain.Choice{
		{ID: "seek_help", Text: "Seek help", NextNode: "meet_guide"},
		{ID: "explore_alone", Text: "Explore alone", NextNode: "dangerous_path"},
	}
	raw := "The fog thickens and the street lamps go out one by one."

	res := Parse(raw, generativeNode(authored...))

	assert.False(t, res.Confident)
	assert.Equal(t, raw, res.Content)
	assert.Equal(t, authored, res.Choices)

	res.Choices[0].NextNode = "mutated"
	assert.Equal(t, "meet_guide", authored[0].NextNode)
}

func TestParse_LeakedChoiceLinesRemoved(t *testing.T) {
	raw := strings.Join([]string{
		"The guide smiles.",
		"",
		"",
		"",
		"1. Trust him",
		"2) Doubt him",
		"3、Leave",
		"- run",
		"• hide",
		"Option 2: wait",
		"Choice 3 shout",
		"He waits for your answer.",
		"[Option 1] Trust the guide",
	}, "\n")

	res := Parse(raw, generativeNode())

	assert.Equal(t, "The guide smiles.\n\nHe waits for your answer.", res.Content)
	require.Len(t, res.Choices, 1)
}

func TestParse_OnlyMarkers(t *testing.T) {
	raw := "[Option 1] a\n[Option 2] b"

	res := Parse(raw, generativeNode())
	assert.Equal(t, "You decide to dig deeper...", res.Content)

	node := generativeNode()
	node.FallbackContent = ""
	res = Parse(raw, node)
	assert.Equal(t, DefaultContinuation, res.Content)

	res = Parse(raw, node, WithEmptyContent("..."))
	assert.Equal(t, "...", res.Content)
}

func TestParse_OnlyLeakedLinesFallsBackToRaw(t *testing.T) {
	raw := "1. first\n2. second"
	res := Parse(raw, generativeNode())
	assert.Equal(t, raw, res.Content)
}

func TestParse_CustomContinuationTable(t *testing.T) {
	raw := "x\n[Option 1] a\n[Option 2] b\n[Option 3] c"
	res := Parse(raw, generativeNode(), WithContinuationNodes("only"))

	require.Len(t, res.Choices, 3)
	for _, c := range res.Choices {
		assert.Equal(t, "only", c.NextNode)
	}
}

// Scenario B: a reply with two markers resolves to exactly two generated
// choices mapped through the authored list, then the default table.
func TestParse_ScenarioTwoMarkers(t *testing.T) {
	node := generativeNode(domain.Choice{ID: "investigate", Text: "Investigate", NextNode: "mystery_deepens"})
	raw := "The pages glow.\n[Option 1] Touch the glowing page\n[Option 2] Close the book"

	res := Parse(raw, node)

	require.Len(t, res.Choices, 2)
	assert.Equal(t, "mystery_deepens", res.Choices[0].NextNode)
	assert.Equal(t, "alternative_path", res.Choices[1].NextNode)
	assert.Equal(t, "The pages glow.", res.Content)
}

func TestParse_Total(t *testing.T) {
	inputs := []string{
		"",
		"[",
		"[Option",
		"[Option ]",
		"[Option 99999999999999999999999] overflow",
		"]]][[[",
		strings.Repeat("[Option 1]", 100),
		"\n\n\n",
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() {
			res := Parse(in, generativeNode())
			assert.NotNil(t, res.Choices)
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Normal Text", "Hello World", "Hello World"},
		{"CRLF", "a\r\nb\rc", "a\nb\nc"},
		{"Safe Controls", "Line1\nLine2\tTabbed", "Line1\nLine2\tTabbed"},
		{"ANSI Code", "\x1b[31mRed\x1b[0m", "[31mRed[0m"},
		{"Null Byte", "Null\x00Byte", "NullByte"},
		{"Invalid UTF-8", "ok\xffok", "ok\uFFFDok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Sanitize(tt.input))
		})
	}
}
