package mibc

import (
	"fmt"
	"os"
	"os/user"
	"runtime"
	"time"

	"github.com/google/uuid"
)

// Version is the package version embedded in generated artifacts.
const Version = "0.1.0"

// systemProvenance gathers host, user and toolchain facts for the
// comment banner of generated artifacts. Each instance carries a run
// identifier so artifacts from one compiler can be correlated.
type systemProvenance struct {
	runID string
}

// NewSystemProvenance returns the default Provenance backed by real
// system information and a fresh run identifier.
func NewSystemProvenance() Provenance {
	return &systemProvenance{runID: uuid.NewString()}
}

func (p *systemProvenance) String() string { return "SystemProvenance" }

func (p *systemProvenance) Comments(sourcePath string) []string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "?"
	}
	username := "?"
	if u, err := user.Current(); err == nil {
		username = u.Username
	}

	var comments []string
	if sourcePath != "" {
		comments = append(comments, "ASN.1 source "+sourcePath)
	}
	comments = append(comments,
		fmt.Sprintf("Produced by mibc-%s at %s", Version, time.Now().Format(time.RFC1123)),
		fmt.Sprintf("On host %s platform %s/%s by user %s", hostname, runtime.GOOS, runtime.GOARCH, username),
		fmt.Sprintf("Using %s", runtime.Version()),
		"Run "+p.runID,
	)
	return comments
}

// StaticProvenance returns fixed comment lines regardless of source,
// keeping compiler output deterministic under test.
func StaticProvenance(comments ...string) Provenance {
	return staticProvenance(comments)
}

type staticProvenance []string

func (p staticProvenance) String() string { return "StaticProvenance" }

func (p staticProvenance) Comments(string) []string { return p }
