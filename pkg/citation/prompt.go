package citation

import "fmt"

// PromptInstruction tells the model how to cite. Its examples are valid
// tokens under the current grammar.
const PromptInstruction = `CITATION RULES:
- You MUST rely on the context to answer.
- Every assertion should be backed by a citation.
- Format inline citations EXACTLY like this: [Source: filename.pdf, Page 3].
- For code, copy the label and line range from the context header, e.g. [Source: owner/repo/path/to/file.go, Page L10-L50].
- Do not cite the "Context" generally, cite the specific source file and page provided.
- Use markdown for formatting.`

// SystemPrompt is the chat system prompt for a rendered context block.
func SystemPrompt(contextBlock string) string {
	return fmt.Sprintf(`You are a helpful assistant for a specific notebook.
You answer questions ONLY using the provided Context.
If the answer is NOT in the Context, say "I don't know based on the provided sources."

%s

CONTEXT:
%s`, PromptInstruction, contextBlock)
}
