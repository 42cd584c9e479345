package repository

import (
	"github.com/aretw0/plotforge/pkg/domain"
	"github.com/aretw0/plotforge/pkg/dsl"
)

// DefaultIntroduction greets the player when the graph carries no introduction.
const DefaultIntroduction = "Welcome to Plotforge, an interactive fiction generator. " +
	"Every choice you make steers the story in a new direction, creating a reading experience that is yours alone. " +
	"Start whenever you are ready."

// Default returns the built-in story graph.
func Default() *NodeSet {
	set, err := New(DefaultGraph())
	if err != nil {
		panic("repository: built-in graph is invalid: " + err.Error())
	}
	return set
}

// DefaultGraph returns a fresh copy of the built-in story graph.
func DefaultGraph() *domain.Graph {
	b := dsl.New().
		Introduction(DefaultIntroduction).
		Framework(domain.Framework{
			Background: "In a world where the modern and the fantastic intertwine, secrets and powers lie hidden. " +
				"The protagonist stumbles upon an ancient book and is drawn into an adventure across dimensions.",
			Theme: "exploration, growth, responsibility",
			Tone:  "mysterious, tense but hopeful",
		}).
		Character("protagonist", map[string]any{
			"name":        "Alex",
			"age":         25,
			"background":  "An ordinary university student, endlessly curious about the unexplained",
			"personality": "brave, clever, a little impulsive",
			"goals":       "explore the unknown and find the truth",
		}).
		Character("guide", map[string]any{
			"name":        "Merlin the old mage",
			"age":         "unknown",
			"background":  "A mysterious guide who seems to know many secrets",
			"personality": "wise, calm, somewhat enigmatic",
			"goals":       "lead the protagonist to fulfil their mission",
		})

	b.Add("start").
		Describe("The story begins").
		Text("An ordinary weekend. You are browsing an old bookshop when a worn volume in the corner catches your eye. "+
			"Its dark brown cover is etched with strange symbols. Curious, you open it...").
		Fallback("You find a mysterious book in the bookshop...").
		Choice("read_more", "Keep reading the book", "strange_occurrence").Effect("curiosity", 1).
		Choice("put_back", "Put the book back and leave the shop", "alternative_path").Effect("caution", 1)

	generative(b, "strange_occurrence", "Something strange happens",
		"As you read on, the world around you begins to shift...").
		Choice("investigate", "Investigate the strange phenomenon", "mystery_deepens").Effect("courage", 1).
		Choice("escape", "Drop the book and get out", "safe_path").Effect("fear", 1)

	generative(b, "alternative_path", "Another road",
		"You leave the bookshop, but a thread of curiosity stays with you...").
		Choice("return_bookstore", "Go back for the book", "strange_occurrence").Effect("regret", 1).
		Choice("continue_away", "Walk on and forget about it", "normal_life").Effect("relief", 1)

	generative(b, "mystery_deepens", "The mystery deepens",
		"You decide to dig deeper into the phenomenon...").
		Choice("seek_help", "Look for someone who knows the truth", "meet_guide").Effect("wisdom", 1).
		Choice("explore_alone", "Explore this strange world alone", "dangerous_path").Effect("recklessness", 1)

	generative(b, "safe_path", "The safe road",
		"You escape the bookshop, yet your curiosity keeps circling back...").
		Choice("rethink", "Reconsider investigating", "mystery_deepens").Effect("determination", 1).
		Choice("forget", "Forget the whole strange episode", "normal_life").Effect("closure", 1)

	generative(b, "meet_guide", "Meeting the guide",
		"You meet a mysterious guide who claims to understand all of this...").
		Choice("trust_guide", "Trust the mysterious guide", "adventure_begins").Effect("trust", 1).
		Choice("doubt_guide", "Stay wary of the guide", "test_guide").Effect("caution", 1)

	generative(b, "dangerous_path", "The dangerous road",
		"Exploring alone, you run into unexpected danger...").
		Choice("face_danger", "Face the danger", "trial_by_fire").Effect("bravery", 1).
		Choice("retreat", "Retreat and look for help", "meet_guide").Effect("humility", 1)

	generative(b, "adventure_begins", "The adventure begins",
		"With the guide's help, your adventure truly begins...").
		Choice("main_quest", "Accept the main quest", "main_quest_start").Effect("purpose", 1).
		Choice("side_quest", "Take on a few side quests first", "side_quest_start").Effect("exploration", 1)

	generative(b, "normal_life", "Ordinary life",
		"You return to ordinary life, though the strange episode sometimes comes back to you...").
		Choice("end_story", "End this story", "story_end").Effect("acceptance", 1).
		Choice("restart", "Begin a new adventure", "start").Effect("new_beginning", 1)

	b.Add("story_end").
		Describe("The end").
		Text("This is where the story ends. Thank you for taking this adventure!").
		Fallback("The end. Thank you for reading!").
		Terminal()

	return b.Graph()
}

func generative(b *dsl.Builder, id, desc, fallback string) *dsl.NodeBuilder {
	return b.Add(id).Generate(desc).Fallback(fallback)
}
