package styles

// DefaultTheme is the VibeAlong dark palette.
var DefaultTheme = Theme{
	Name: "default",
	Tokens: ThemeTokens{
		Background: "#0D1117",
		Panel:      "#161B22",
		Text:       "#E6EDF3",
		TextMuted:  "#8B949E",
		Border:     "#30363D",
		Accent:     "#A371F7",
		Focus:      "#D2A8FF",
		Success:    "#3FB950",
		Warning:    "#D29922",
		Error:      "#F85149",
		Info:       "#58A6FF",
		Requester:  "#58A6FF",
		Assistant:  "#A371F7",
		Provider:   "#3FB950",
		System:     "#8B949E",
	},
}
