package core

import "strings"

// Language is one of the languages the assistant can answer in.
type Language int

const (
	English Language = iota
	French
	Ewondo
	Douala
	Bassa
)

var SupportedLanguages = []Language{English, French, Ewondo, Douala, Bassa}

// ParseLanguage maps a language code ("english", "french", ...) to a
// Language. Codes are matched exactly.
func ParseLanguage(code string) (Language, bool) {
	for _, l := range SupportedLanguages {
		if l.Code() == code {
			return l, true
		}
	}
	return English, false
}

// ResolveLanguage is ParseLanguage with the English fallback applied.
func ResolveLanguage(code string) Language {
	l, _ := ParseLanguage(code)
	return l
}

func (l Language) Code() string {
	switch l {
	case English:
		return "english"
	case French:
		return "french"
	case Ewondo:
		return "ewondo"
	case Douala:
		return "douala"
	case Bassa:
		return "bassa"
	}
	return "english"
}

func (l Language) Name() string {
	switch l {
	case English:
		return "English"
	case French:
		return "French"
	case Ewondo:
		return "Ewondo"
	case Douala:
		return "Douala"
	case Bassa:
		return "Bassa"
	}
	return "English"
}

// IsLocal reports whether only a placeholder translation exists for l.
func (l Language) IsLocal() bool {
	switch l {
	case Ewondo, Douala, Bassa:
		return true
	case English, French:
		return false
	}
	return false
}

// isoCode returns the two-letter code used by the translation API.
func (l Language) isoCode() (string, bool) {
	switch l {
	case English:
		return "en", true
	case French:
		return "fr", true
	case Ewondo, Douala, Bassa:
		return "", false
	}
	return "", false
}

const localSystemPrompt = "Vous êtes MediChat AI, assistant médical pour les patients. Répondez avec compassion et clarté."

func (l Language) systemPrompt() string {
	switch l {
	case English:
		return "You are MediChat AI, a helpful medical assistant for patients in Cameroon.\n" +
			"You provide educational health information and support, but you are not a replacement for professional medical advice.\n" +
			"Always be compassionate, clear, and culturally sensitive. Encourage patients to consult healthcare professionals for medical concerns.\n" +
			"Keep responses concise and easy to understand."
	case French:
		return "Vous êtes MediChat AI, un assistant médical utile pour les patients au Cameroun.\n" +
			"Vous fournissez des informations éducatives sur la santé et un soutien, mais vous ne remplacez pas les conseils médicaux professionnels.\n" +
			"Soyez toujours compatissant, clair et culturellement sensible. Encouragez les patients à consulter des professionnels de la santé pour les préoccupations médicales.\n" +
			"Gardez les réponses concises et faciles à comprendre."
	case Ewondo, Douala, Bassa:
		return localSystemPrompt
	}
	return English.systemPrompt()
}

const localDisclaimer = "⚠️ Ces informations sont à des fins éducatives. Consultez un professionnel de la santé."

func (l Language) disclaimer() string {
	switch l {
	case English:
		return "⚠️ This information is for educational purposes only. Please consult a qualified healthcare professional for medical advice, diagnosis, or treatment."
	case French:
		return "⚠️ Cette information est à des fins éducatives seulement. Veuillez consulter un professionnel de la santé qualifié pour des conseils médicaux, un diagnostic ou un traitement."
	case Ewondo, Douala, Bassa:
		return localDisclaimer
	}
	return English.disclaimer()
}

const localFallback = "Je suis désolé, j'ai des problèmes techniques. Réessayez plus tard."

// fallbackResponse is the apology returned when no model reply is available.
func (l Language) fallbackResponse() string {
	switch l {
	case English:
		return "I'm sorry, I'm having technical difficulties right now. Please try again later or consult a healthcare professional if you have urgent medical concerns."
	case French:
		return "Je suis désolé, j'ai des difficultés techniques en ce moment. Veuillez réessayer plus tard ou consulter un professionnel de la santé si vous avez des préoccupations médicales urgentes."
	case Ewondo, Douala, Bassa:
		return localFallback
	}
	return English.fallbackResponse()
}

// localGreeting is the canned text used in place of a real translation into l.
func (l Language) localGreeting() (string, bool) {
	switch l {
	case Ewondo:
		return "Mbok nga ve ayos - Je vous comprends (I understand you)", true
	case Douala:
		return "Na se ye - Je vous comprends (I understand you)", true
	case Bassa:
		return "M si i - Je vous comprends (I understand you)", true
	case English, French:
		return "", false
	}
	return "", false
}

var medicalKeywords = []string{
	"pain", "symptoms", "diagnosis", "treatment", "medicine", "medication",
	"doctor", "hospital", "illness", "disease", "infection", "fever",
	"douleur", "symptômes", "diagnostic", "traitement", "médicament",
	"docteur", "hôpital", "maladie", "fièvre",
}

// NeedsMedicalDisclaimer reports whether message mentions a medical keyword.
func NeedsMedicalDisclaimer(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range medicalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
