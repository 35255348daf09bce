package extract

import (
	"fmt"
	"slices"
	"strings"
)

const systemPrompt = `You are an assistant that outputs only JSON. You are given the text of a website and asked to extract specific information from it. Always answer with a single JSON object. Never translate anything; return the raw data exactly as it appears.`

const userPromptTemplate = `Extract the following information from the content. Do not translate the data, return only the raw data:

%s

If you are not sure about a value, write 'None'.

CONTENT:
%s

INSTRUCTIONS:

Output JSON and write every key EXACTLY as written above: %s
%s%s%s
If you are unsure of any of the datapoints, simply write 'None'.`

const contactNameRule = `
The 'contact_name' key is either a company name OR the name of an actual person. The person's name is sometimes reflected by the email address, for example john@example.com = 'John'.
If you return an actual person's name, return only the first name AND return 'pronoun' as 'du'. If it is a business name, return 'pronoun' as 'i', and omit legal suffixes such as 'aps' or 'as' from the name.

Examples:

'Lars Larsen': contact_name = 'Lars' and pronoun = 'du'
'DK Roof ApS': contact_name = 'DK Roof' and pronoun = 'i'
`

const singleValueRule = `
For 'city' and 'area' return a single datapoint, not a list. If there are several cities or areas, return only the first one.
`

const vocabularyRule = `
The 'industry' value must be one of the following: %s. If none of them fits, write 'None'.
`

const reminderRule = `
REMEMBER to return a json object with these keys: %s
`

// buildUserPrompt renders the user turn for one extraction attempt.
func buildUserPrompt(req ExtractionRequest) string {
	keys := strings.Join(req.Fields, ", ")

	var rules strings.Builder
	if slices.Contains(req.Fields, "contact_name") {
		rules.WriteString(contactNameRule)
	}
	if slices.Contains(req.Fields, "city") || slices.Contains(req.Fields, "area") {
		rules.WriteString(singleValueRule)
	}

	vocab := ""
	if len(req.Vocabulary) > 0 && slices.Contains(req.Fields, "industry") {
		vocab = fmt.Sprintf(vocabularyRule, strings.Join(req.Vocabulary, ", "))
	}

	reminder := ""
	if len(req.Reminder) > 0 {
		reminder = fmt.Sprintf(reminderRule, strings.Join(req.Reminder, ", "))
	}

	return fmt.Sprintf(userPromptTemplate, keys, req.Content, keys, rules.String(), vocab, reminder)
}
