package interpret

// messageKey names a localized user-facing message.
type messageKey string

const (
	msgEmptyDream   messageKey = "emptyDream"
	msgDreamTooLong messageKey = "dreamTooLong"
	msgNetwork      messageKey = "networkError"
	msgServer       messageKey = "serverError"
	msgAccessBlock  messageKey = "cloudflareError"
	msgTimeout      messageKey = "timeoutError"
)

var messages = map[Language]map[messageKey]string{
	English: {
		msgEmptyDream:   "Please enter your dream first.",
		msgDreamTooLong: "Dream description is too long. Maximum 2000 characters.",
		msgNetwork:      "Network error. Please check your connection.",
		msgServer:       "Server error. Please try again later.",
		msgAccessBlock:  "Service unavailable. Server blocked by Cloudflare Access or tunnel issue.",
		msgTimeout:      "Request timed out. Please try again.",
	},
	Urdu: {
		msgEmptyDream:   "براہ کرم پہلے اپنا خواب درج کریں۔",
		msgDreamTooLong: "خواب کی تفصیل بہت لمبی ہے۔ زیادہ سے زیادہ 2000 حروف۔",
		msgNetwork:      "نیٹ ورک کی خرابی۔ براہ کرم اپنا کنکشن چیک کریں۔",
		msgServer:       "سرور کی خرابی۔ براہ کرم بعد میں دوبارہ کوشش کریں۔",
		msgAccessBlock:  "سروس دستیاب نہیں۔ سرور Cloudflare Access یا ٹنل کے مسئلے کی وجہ سے بلاک ہے۔",
		msgTimeout:      "درخواست کا وقت ختم۔ براہ کرم دوبارہ کوشش کریں۔",
	},
}

// UserMessage returns the localized message to show for err.
// It returns "" for nil errors and for caller cancellations.
func UserMessage(err error, lang Language) string {
	if err == nil || IsUserCancel(err) {
		return ""
	}

	var key messageKey
	switch KindOf(err) {
	case KindEmptyInput:
		key = msgEmptyDream
	case KindInputTooLong:
		key = msgDreamTooLong
	case KindAccessBlocked:
		key = msgAccessBlock
	case KindUpstreamHTTPError:
		key = msgServer
	case KindTimeout:
		key = msgTimeout
	default:
		key = msgNetwork
	}

	table, ok := messages[lang]
	if !ok {
		table = messages[English]
	}
	return table[key]
}
