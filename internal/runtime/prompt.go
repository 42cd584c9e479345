package runtime

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/plotforge/pkg/domain"
)

const (
	defaultBackground = "a mysterious adventure"
	historyExcerpt    = 100
)

// buildPrompt assembles the generation prompt from the node, the world
// context, the recent history and the last choice taken.
func (e *Engine) buildPrompt(node domain.Node) string {
	st := e.session.State
	var b strings.Builder

	b.WriteString("You are a professional novelist. Write the next part of the story from the information below.\n\n")

	bg := st.FrameworkInfo.Background
	if strings.TrimSpace(bg) == "" {
		bg = defaultBackground
	}
	fmt.Fprintf(&b, "Story background: %s\n", bg)
	if st.FrameworkInfo.Theme != "" {
		fmt.Fprintf(&b, "Theme: %s\n", st.FrameworkInfo.Theme)
	}
	if st.FrameworkInfo.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", st.FrameworkInfo.Tone)
	}
	b.WriteString("\n")

	if len(st.CharacterInfo) > 0 {
		b.WriteString("Characters:\n")
		names := make([]string, 0, len(st.CharacterInfo))
		for name := range st.CharacterInfo {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sheet, err := json.Marshal(st.CharacterInfo[name])
			if err != nil {
				sheet = []byte("{}")
			}
			fmt.Fprintf(&b, "- %s: %s\n", name, sheet)
		}
		b.WriteString("\n")
	}

	desc := node.Description
	if desc == "" {
		desc = node.ID
	}
	fmt.Fprintf(&b, "Current plot: %s\n", desc)

	if st.LastChoiceText != "" {
		fmt.Fprintf(&b, "The reader just chose: %s\n", st.LastChoiceText)
	}

	if len(st.History) > 0 {
		recent := st.History
		if len(recent) > e.maxHistory {
			recent = recent[len(recent)-e.maxHistory:]
		}
		b.WriteString("\nRecent story developments:\n")
		for i, h := range recent {
			fmt.Fprintf(&b, "%d. %s...\n", i+1, excerpt(h.Content, historyExcerpt))
		}
	}

	b.WriteString("\nWriting requirements:\n")
	b.WriteString("- Keep the plot coherent with the background and the characters\n")
	b.WriteString("- Use vivid language with strong imagery\n")
	b.WriteString("- Aim for a moderate length of roughly 200-300 words\n")
	b.WriteString("- End on a note of suspense that invites the reader to choose\n")

	b.WriteString("\nChoice requirements:\n")
	b.WriteString("- Based on the story so far and the characters, offer 3 distinct follow-up options\n")
	b.WriteString("- Each option should point in a different direction\n")
	b.WriteString("- Keep each option short, about 5-15 words\n")
	b.WriteString("- After the story text, list the options on their own lines in exactly this format:\n")
	b.WriteString("  [Option 1] option text\n")
	b.WriteString("  [Option 2] option text\n")
	b.WriteString("  [Option 3] option text\n")
	b.WriteString("- Keep the markers exact and never mix option text into the story")

	return b.String()
}

// excerpt returns the first n runes of s.
func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
