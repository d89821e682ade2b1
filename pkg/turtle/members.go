package turtle

import "fmt"

const (
	// InformationMember is the externally visible metadata member.
	InformationMember = "information.turtle"

	// DirectivesMember holds the prefix declarations once the metadata has
	// been appended to.
	DirectivesMember = InformationMember + "/directives"

	// CRLF terminates appended directive lines and assembled chunks.
	CRLF = "\r\n"
)

// ChunkMember names the i-th triple chunk.
func ChunkMember(i int) string {
	return fmt.Sprintf("%s/%08d", InformationMember, i)
}
