// Package session loads probe-session files: one HCL document that pins down
// everything a diagnosis run needs, so a run can be reproduced from a single
// file instead of a flag soup.
//
//	corpus  { path = "./zmk-config" }
//	remote  { repo = "owner/zmk-config@main" }
//	failing { keys = [3, 7, 12] }
//	labels  { path = "./nice_nano.yaml" }
//
// All blocks are optional; flag values take precedence over session values.
package session

import (
	"context"
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/keygridgo/internal/ctxlog"
)

// Session is the decoded probe-session document.
type Session struct {
	CorpusPath  string
	Repo        string
	LabelsPath  string
	FailingKeys []int
}

// hclSessionFile mirrors the top-level document structure for decoding.
type hclSessionFile struct {
	Corpus  *hclCorpusBlock  `hcl:"corpus,block"`
	Remote  *hclRemoteBlock  `hcl:"remote,block"`
	Failing *hclFailingBlock `hcl:"failing,block"`
	Labels  *hclLabelsBlock  `hcl:"labels,block"`
}

type hclCorpusBlock struct {
	Path string `hcl:"path"`
}

type hclRemoteBlock struct {
	Repo string `hcl:"repo"`
}

// hclFailingBlock keeps keys as a raw expression so evaluation stays explicit:
// the value is resolved through cty below rather than by struct magic.
type hclFailingBlock struct {
	Keys hcl.Expression `hcl:"keys"`
}

type hclLabelsBlock struct {
	Path string `hcl:"path"`
}

// Load parses and decodes one probe-session file.
func Load(ctx context.Context, path string) (*Session, error) {
	logger := ctxlog.FromContext(ctx)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse session file %s: %w", path, diags)
	}

	var parsed hclSessionFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode session file %s: %w", path, diags)
	}

	s := &Session{}
	if parsed.Corpus != nil {
		s.CorpusPath = parsed.Corpus.Path
	}
	if parsed.Remote != nil {
		s.Repo = parsed.Remote.Repo
	}
	if parsed.Labels != nil {
		s.LabelsPath = parsed.Labels.Path
	}
	if parsed.Failing != nil {
		keys, err := evalKeyList(parsed.Failing.Keys)
		if err != nil {
			return nil, fmt.Errorf("invalid failing keys in %s: %w", path, err)
		}
		s.FailingKeys = keys
	}

	logger.Debug("Session file loaded.", "path", path,
		"corpus", s.CorpusPath, "repo", s.Repo, "failing_keys", len(s.FailingKeys))
	return s, nil
}

// evalKeyList resolves the failing-keys expression into non-negative ints.
func evalKeyList(expr hcl.Expression) ([]int, error) {
	value, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	if !value.CanIterateElements() {
		return nil, fmt.Errorf("keys must be a list of key indices, got %s", value.Type().FriendlyName())
	}

	var keys []int
	for it := value.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		if elem.Type() != cty.Number {
			return nil, fmt.Errorf("key index must be a number, got %s", elem.Type().FriendlyName())
		}
		bf := elem.AsBigFloat()
		n, acc := bf.Int64()
		if acc != big.Exact {
			return nil, fmt.Errorf("key index %s is not an integer", bf.String())
		}
		if n < 0 {
			return nil, fmt.Errorf("key index %d is negative", n)
		}
		keys = append(keys, int(n))
	}
	return keys, nil
}
