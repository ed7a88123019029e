package codegen

import (
	"fmt"
	"strings"
)

const systemPrompt = `You generate complete, deployable demo applications.
Respond with a single JSON object of the shape
{"files": [{"path": "...", "content": "..."}]} and nothing else.`

func buildPrompt(req GenerateRequest) string {
	var b strings.Builder

	switch req.Role {
	case "backend":
		fmt.Fprintf(&b, "Generate a minimal Node.js API backend for a demo of %q.\n", req.CompanyName)
	default:
		fmt.Fprintf(&b, "Generate a single-page marketing site for a demo of %q.\n", req.CompanyName)
	}

	if req.LogoURL != "" {
		fmt.Fprintf(&b, "Use the company logo at %s.\n", req.LogoURL)
	}
	if req.TemplateRepo != "" {
		fmt.Fprintf(&b, "Take stylistic inspiration from %s.\n", req.TemplateRepo)
	}

	// Analytics credentials are injected verbatim; they are opaque blobs as
	// far as this service is concerned.
	if req.WriteKey != "" {
		fmt.Fprintf(&b, "Wire analytics with write key %q, profile token %q, space id %q.\n",
			req.WriteKey, req.ProfileToken, req.SpaceID)
	}

	b.WriteString("Include a package.json so the project deploys as-is.")
	return b.String()
}
