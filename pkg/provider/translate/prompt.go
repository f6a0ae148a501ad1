package translate

import "strings"

// basePrompt instructs the model to behave as a captioning translator. The
// wording deliberately forbids alternatives and commentary: the raw model
// output is displayed on screen as-is.
const basePrompt = "You are a real-time translator for a scientific presentation. " +
	"Translate the following spoken text into %TARGET%. " +
	"Preserve technical and scientific terminology accurately. " +
	"Output only a single, most probable translation. " +
	"Print only the translated text and absolutely nothing else - " +
	"no alternatives, no explanations, no notes, no quotation marks."

// SystemPrompt builds the system instruction for a translation request,
// naming the target language and any glossary terms that must survive
// translation verbatim.
func SystemPrompt(req Request) string {
	var b strings.Builder
	b.WriteString(strings.ReplaceAll(basePrompt, "%TARGET%", req.TargetLanguage))
	if len(req.Terms) > 0 {
		b.WriteString(" The following technical terms must be kept verbatim, exactly as written: ")
		b.WriteString(strings.Join(req.Terms, ", "))
		b.WriteString(".")
	}
	return b.String()
}
