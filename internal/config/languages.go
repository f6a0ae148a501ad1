package config

// Language pairs an ISO 639-1 code with an English display name.
type Language struct {
	Code string
	Name string
}

// SourceLanguages lists the languages the transcription model is tuned for.
// An empty or "auto" code lets the model detect the language.
var SourceLanguages = []Language{
	{"ko", "Korean"},
	{"en", "English"},
	{"ja", "Japanese"},
	{"zh", "Chinese"},
	{"es", "Spanish"},
	{"fr", "French"},
	{"de", "German"},
	{"ru", "Russian"},
	{"pt", "Portuguese"},
	{"vi", "Vietnamese"},
}

// TargetLanguages lists the translation targets. The translator is LLM-based,
// so this set is broader than the transcription set.
var TargetLanguages = []Language{
	{"ko", "Korean"},
	{"en", "English"},
	{"ja", "Japanese"},
	{"zh", "Chinese"},
	{"es", "Spanish"},
	{"fr", "French"},
	{"de", "German"},
	{"ru", "Russian"},
	{"pt", "Portuguese"},
	{"vi", "Vietnamese"},
	{"ar", "Arabic"},
	{"hi", "Hindi"},
	{"th", "Thai"},
	{"id", "Indonesian"},
	{"ms", "Malay"},
	{"it", "Italian"},
	{"nl", "Dutch"},
	{"pl", "Polish"},
	{"sv", "Swedish"},
	{"da", "Danish"},
	{"no", "Norwegian"},
	{"fi", "Finnish"},
	{"tr", "Turkish"},
	{"uk", "Ukrainian"},
	{"cs", "Czech"},
	{"el", "Greek"},
	{"he", "Hebrew"},
	{"hu", "Hungarian"},
	{"ro", "Romanian"},
	{"bg", "Bulgarian"},
	{"hr", "Croatian"},
	{"sk", "Slovak"},
	{"sl", "Slovenian"},
	{"sr", "Serbian"},
	{"lt", "Lithuanian"},
	{"lv", "Latvian"},
	{"et", "Estonian"},
	{"tl", "Filipino"},
	{"sw", "Swahili"},
	{"bn", "Bengali"},
	{"ta", "Tamil"},
	{"te", "Telugu"},
	{"ml", "Malayalam"},
	{"ur", "Urdu"},
	{"fa", "Persian"},
	{"mn", "Mongolian"},
	{"ka", "Georgian"},
	{"az", "Azerbaijani"},
	{"kk", "Kazakh"},
	{"uz", "Uzbek"},
}

// KnownSourceLanguage reports whether code names a supported transcription
// language. Empty and "auto" are valid and mean autodetection.
func KnownSourceLanguage(code string) bool {
	if code == "" || code == "auto" {
		return true
	}
	for _, l := range SourceLanguages {
		if l.Code == code {
			return true
		}
	}
	return false
}

// KnownTargetLanguage reports whether name matches a catalogued translation
// target, by display name.
func KnownTargetLanguage(name string) bool {
	for _, l := range TargetLanguages {
		if l.Name == name {
			return true
		}
	}
	return false
}
