package tree_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/paneltree/internal/presentation/tree"
	"github.com/aretw0/paneltree/pkg/domain"
	"github.com/aretw0/paneltree/pkg/expr"
)

func sampleTree() domain.ConfigNode {
	child := domain.ConfigNode{Input: expr.MustParse(`input["name"]`), HandlerID: "String"}
	root := domain.ConfigNode{
		Input:     expr.MustParse("run"),
		HandlerID: "Object",
		Vars:      domain.NewFrame(domain.Binding{Name: "a", Expr: expr.MustParse("1")}),
	}
	root = root.WithChild("name", child)
	root = root.WithChild("loss", expr.MustParse(`input["loss"]`))
	return root
}

func TestGenerateMermaid(t *testing.T) {
	got := tree.GenerateMermaid(sampleTree(), nil)

	for _, want := range []string{
		"graph TD\n",
		`root[["<root> · Object"]]`,
		`root_name["name · String"]`,
		`root_loss(("loss · ?"))`,
		`root -- "name" --> root_name`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
		}
	}
	assert.NotContains(t, got, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	got := tree.GenerateMermaid(sampleTree(), &tree.Overlay{Selected: domain.Path{"name"}})

	assert.Contains(t, got, "class root onpath;")
	assert.Contains(t, got, "class root_name current;")
	assert.Contains(t, got, "class root_loss unrelated;")
}

func TestGenerateMermaid_SanitizesIDs(t *testing.T) {
	root := domain.ConfigNode{Input: expr.MustParse("x"), HandlerID: "Object"}
	root = root.WithChild("my-key/1", expr.MustParse("y"))

	got := tree.GenerateMermaid(root, nil)
	assert.Contains(t, got, "root_my_key_1((")
}

func TestMarkdown(t *testing.T) {
	var asked []string
	got := tree.Markdown(sampleTree(), tree.MarkdownOptions{
		Selected: domain.Path{"name"},
		Options: func(path domain.Path, node domain.ConfigNode) []string {
			asked = append(asked, path.String())
			return []string{"*String*", "Expression"}
		},
	})

	assert.Contains(t, got, "- **<root>** `Object` ← `run`")
	assert.Contains(t, got, "  - var `a` = `1`")
	assert.Contains(t, got, "  - **name** `String` ← `input[\"name\"]` _(selected)_")
	assert.Contains(t, got, "    - renderers: *String*, Expression")
	assert.Contains(t, got, "  - **loss** `unresolved`")
	// Only the selection shows its own options; the root never does.
	assert.Equal(t, []string{"<root>.name"}, asked)
}
