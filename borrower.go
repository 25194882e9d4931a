package mibc

import "fmt"

// sourceBorrower serves precompiled artifacts out of any Source. The
// source's extension configuration decides which artifact files match;
// when genTextSuffix is set and text generation is requested, the
// borrower asks for the texts variant instead.
type sourceBorrower struct {
	source        Source
	genTextSuffix string
}

// BorrowerOption configures a borrower.
type BorrowerOption func(*sourceBorrower)

// WithGenTextsVariant makes the borrower request "<name><suffix>" when
// GenOptions.GenTexts is set, so text-bearing artifacts are kept apart
// from stripped ones.
func WithGenTextsVariant(suffix string) BorrowerOption {
	return func(b *sourceBorrower) { b.genTextSuffix = suffix }
}

// SourceBorrower adapts a Source into a Borrower of precompiled
// artifacts.
func SourceBorrower(source Source, opts ...BorrowerOption) Borrower {
	b := &sourceBorrower{source: source}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *sourceBorrower) String() string {
	return fmt.Sprintf("SourceBorrower{%s}", describe(b.source))
}

func (b *sourceBorrower) Fetch(name string, opts GenOptions) (*ModuleInfo, []byte, error) {
	lookup := name
	if opts.GenTexts && b.genTextSuffix != "" {
		lookup = name + b.genTextSuffix
	}
	info, artifact, err := b.source.Fetch(lookup)
	if err != nil {
		return nil, nil, err
	}
	if lookup != name {
		info = &ModuleInfo{Name: name, Path: info.Path, File: info.File, ModTime: info.ModTime}
	}
	return info, artifact, nil
}
