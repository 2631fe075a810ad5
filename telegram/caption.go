package telegram

import (
	"regexp"
	"strings"

	"tryonapi/models"
)

// CaptionOptions are the try-on options read from a garment photo caption.
type CaptionOptions struct {
	Mode     models.Mode
	Gender   models.Gender
	Feedback *string
	Advice   bool
}

var (
	feedbackRule = regexp.MustCompile(`(?is)feedback:\s*(.*)$`)
	wordRule     = regexp.MustCompile(`[\p{L}/_]+`)
)

// ParseCaption reads "full", "part", "male", "female", "/advice" and a
// trailing "feedback: ..." from a caption. Unknown words are ignored.
func ParseCaption(caption string) CaptionOptions {
	var options CaptionOptions

	if match := feedbackRule.FindStringSubmatchIndex(caption); match != nil {
		if feedback := strings.TrimSpace(caption[match[2]:match[3]]); feedback != "" {
			options.Feedback = &feedback
		}
		caption = caption[:match[0]]
	}

	for _, word := range wordRule.FindAllString(strings.ToLower(caption), -1) {
		switch word {
		case "full", "full_fit", "fullfit", "outfit":
			options.Mode = models.ModeFullFit
		case "part", "top", "single":
			options.Mode = models.ModePart
		case "male", "man", "men":
			options.Gender = models.GenderMale
		case "female", "woman", "women":
			options.Gender = models.GenderFemale
		case "/advice", "advice":
			options.Advice = true
		}
	}
	return options
}
