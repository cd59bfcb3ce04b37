package browse

// EducationSection is one heading of the education page
type EducationSection struct {
	Title      string   `json:"title"`
	Subtitle   string   `json:"subtitle,omitempty"`
	Paragraphs []string `json:"paragraphs,omitempty"`
	Bullets    []string `json:"bullets,omitempty"`
}

var educationSections = []EducationSection{
	{
		Title: "Archaeology Education Resources",
		Paragraphs: []string{
			"Archaeology is the study of the human past using material remains: any objects that people created, modified, or used. " +
				"By studying these artifacts, archaeologists piece together the stories of our ancestors and how societies evolved over millennia.",
		},
	},
	{
		Title: "What Do Archaeologists Do?",
		Paragraphs: []string{
			"Archaeologists excavate sites carefully, analyse artifacts in laboratories and interpret their findings to build a picture of the past. " +
				"They study everything from grand temples to pottery shards to learn about daily life, trade, religion and the social structures of ancient cultures.",
		},
	},
	{
		Title:    "The Importance of Preservation",
		Subtitle: "Looting, Destruction, and Unlawful Removal",
		Paragraphs: []string{
			"Archaeological sites and artifacts are a non-renewable resource. Once a site is destroyed or an artifact is removed from its original context, " +
				"the historical information it holds is lost forever. Where an artifact is found, what it is found with and its position in the soil matter as much as the artifact itself.",
			"Looting, the illegal and unscientific digging of sites for valuable artifacts, destroys this context. " +
				"Destruction of sites through construction, conflict or neglect erases entire chapters of human history.",
			"Removing a 'souvenir' from a historical site contributes to the same loss. Take only pictures and leave only footprints. " +
				"If you find an artifact, report it to local authorities or an archaeological body so it can be studied and preserved.",
		},
	},
	{
		Title: "How You Can Help",
		Bullets: []string{
			"Be a responsible tourist: respect the rules at historical sites and museums. Never touch artifacts unless permitted.",
			"Report suspicious activity: if you see someone digging illegally or selling ancient artifacts, report them to the authorities.",
			"Support ethical organizations: donate to or volunteer with museums and archaeological organizations that preserve cultural heritage.",
			"Educate yourself and others: the more people understand our shared past, the better we can protect it.",
		},
	},
}

// Education returns the static education page content
func Education() []EducationSection {
	out := make([]EducationSection, len(educationSections))
	copy(out, educationSections)
	return out
}
