package oauth

import (
	"fmt"

	"github.com/google/uuid"
)

// Client identity sent with dynamic client registration requests.
const (
	SoftwareName    = "CUPS"
	SoftwareURI     = "https://openprinting.github.io/cups"
	VersionMajor    = 2
	VersionMinor    = 5
	SoftwareVersion = "2.5"
)

// SoftwareID returns the RFC 7591 software_id for this client.
//
// The 16 bytes are "CUPS", the two-digit major and minor versions in ASCII and
// zero fill, with the RFC 9562 version 8 and variant bits applied. The value is
// identical across calls and processes.
func SoftwareID() string {
	var id uuid.UUID
	copy(id[:], fmt.Sprintf("%s%02d%02d", SoftwareName, VersionMajor%100, VersionMinor%100))

	id[6] = (id[6] & 0x0f) | 0x80
	id[8] = (id[8] & 0x3f) | 0x80

	return id.String()
}
