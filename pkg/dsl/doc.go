/*
Package dsl builds story graphs in Go instead of JSON or markdown files.

Example usage:

	b := dsl.New().Introduction("A storm is coming.")

	b.Add("start").
		Text("The harbor is empty.").
		Fallback("The harbor.").
		Choice("sail", "Set sail", "sea").Effect("courage", 1).
		Choice("wait", "Wait for the storm", "storm").When("courage < 1")

	b.Add("sea").
		Generate("Out on open water").
		Fallback("Waves everywhere.").
		Terminal()

	eng, err := plotforge.New("", plotforge.WithGraphSource(b.Build()))
*/
package dsl
