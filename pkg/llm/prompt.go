package llm

import "fmt"

const groundedTemplate = `
Based on the following content scraped from %s, please answer this question:
"%s"

WEBSITE CONTENT:
%s

Please only use information contained in the website content to answer the question.
If the answer cannot be found in the content, please say so.
`

// ComposePrompt embeds the scraped text and its source URL around question.
func ComposePrompt(url, text, question string) string {
	return fmt.Sprintf(groundedTemplate, url, question, text)
}
