package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const categoriesURI = "expense://categories"

// CategoriesResource defines the read-only categories reference document.
func CategoriesResource() *mcp.Resource {
	return &mcp.Resource{
		Name:        "categories",
		Title:       "Expense categories",
		Description: "Reference list of expense categories and subcategories",
		MIMEType:    "application/json",
		URI:         categoriesURI,
	}
}

// CategoriesResourceHandler serves the categories file. The file is read on
// every request so edits show up without a restart; an unreadable file
// yields an error envelope instead of a protocol error.
func CategoriesResourceHandler(path string) mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		uri := categoriesURI
		if req != nil && req.Params != nil && req.Params.URI != "" {
			uri = req.Params.URI
		}

		text, err := readCategories(path)
		if err != nil {
			data, merr := json.Marshal(Failure("Error reading categories: %s", err))
			if merr != nil {
				return nil, fmt.Errorf("marshal categories error: %w", merr)
			}
			text = string(data)
		}

		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      uri,
					MIMEType: "application/json",
					Text:     text,
				},
			},
		}, nil
	}
}

func readCategories(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
