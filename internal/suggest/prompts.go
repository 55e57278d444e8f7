package suggest

const (
	suggestionsSystem = "You are an assistant for professional meetings. " +
		"Analyze the conversation and provide 3 practical suggestions for how to respond or proceed. Be concise."

	suggestionsUser = "Analyze this conversation and suggest next moves:\n\n%s\n\n" +
		"Provide 3 short, practical suggestions:"

	summarySystem = "You are an assistant that writes summaries of professional meetings. " +
		"Provide a structured summary with at most 5 key points. Use bullet points."

	summaryUser = "Write a professional summary of this meeting:\n\n%s\n\n" +
		"Summarize in 5 key points:"
)

const (
	suggestionsMaxTokens = 400
	summaryMaxTokens     = 350
	chatTemperature      = 0.1
)
