package interpret

import "fmt"

const (
	systemPromptEnglish = "You are an Islamic dream interpretation expert. Interpret dreams based on Quran, Hadith, and Islamic traditions.\n" +
		"Keep your response concise (200-300 words).\n" +
		"If the dream seems negative, also provide positive guidance.\n" +
		"Note: This is general guidance only, not a religious ruling (fatwa)."

	systemPromptUrdu = "آپ ایک اسلامی خوابوں کی تعبیر کے ماہر ہیں۔ قرآن، حدیث اور اسلامی روایات کی روشنی میں خوابوں کی تعبیر کریں۔ \n" +
		"اپنا جواب اردو میں دیں۔ \n" +
		"مختصر اور واضح رہیں (200-300 الفاظ)۔\n" +
		"اگر خواب منفی ہے تو مثبت رہنمائی بھی دیں۔\n" +
		"نوٹ: یہ صرف عمومی رہنمائی ہے، فتویٰ نہیں۔"

	userPromptEnglish = "My dream: %s\n\nPlease provide an Islamic interpretation of this dream."
	userPromptUrdu    = "میرا خواب: %s\n\nبراہ کرم اس خواب کی اسلامی تعبیر بیان کریں۔"
)

// SystemPrompt returns the fixed instruction for the given language.
func SystemPrompt(lang Language) string {
	if lang == Urdu {
		return systemPromptUrdu
	}
	return systemPromptEnglish
}

// BuildPrompt returns the full prompt sent to the model: the system
// instruction, a blank line, then the user prompt wrapping the dream.
func BuildPrompt(lang Language, dream string) string {
	format := userPromptEnglish
	if lang == Urdu {
		format = userPromptUrdu
	}
	return SystemPrompt(lang) + "\n\n" + fmt.Sprintf(format, dream)
}
