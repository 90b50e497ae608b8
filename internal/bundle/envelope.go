package bundle

import "strings"

const (
	contextTag      = "context"
	projectTreeTag  = "project_tree"
	projectFilesTag = "project_files"
	newline         = "\n"
)

// renderEnvelope wraps tree and files in the context envelope. The project_tree section is
// written only when includeTree is set.
func renderEnvelope(treeText string, filesText string, includeTree bool) string {
	var builder strings.Builder
	writeOpenTag(&builder, contextTag)
	if includeTree {
		writeSection(&builder, projectTreeTag, treeText)
	}
	writeSection(&builder, projectFilesTag, filesText)
	writeCloseTag(&builder, contextTag)
	return builder.String()
}

func writeSection(builder *strings.Builder, tag string, body string) {
	writeOpenTag(builder, tag)
	builder.WriteString(strings.TrimRight(body, newline))
	builder.WriteString(newline)
	writeCloseTag(builder, tag)
}

func writeOpenTag(builder *strings.Builder, tag string) {
	builder.WriteString("<")
	builder.WriteString(tag)
	builder.WriteString(">")
	builder.WriteString(newline)
}

func writeCloseTag(builder *strings.Builder, tag string) {
	builder.WriteString("</")
	builder.WriteString(tag)
	builder.WriteString(">")
	builder.WriteString(newline)
}
