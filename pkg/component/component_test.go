package component_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livemeasure/livemeasure/pkg/component"
)

func sampleTree() *component.Component {
	return &component.Component{
		ID: "prj", Qualifier: component.QualifierProject,
		Children: []*component.Component{
			{
				ID: "src", Qualifier: component.QualifierDirectory,
				Children: []*component.Component{
					{ID: "a.go", Qualifier: component.QualifierFile},
					{ID: "b.go", Qualifier: component.QualifierFile},
				},
			},
			{ID: "main.go", Qualifier: component.QualifierFile},
		},
	}
}

func ids(cs []*component.Component) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func TestPostOrderVisitsChildrenFirst(t *testing.T) {
	got := ids(component.PostOrder(sampleTree()))
	assert.Equal(t, []string{"a.go", "b.go", "src", "main.go", "prj"}, got)
}

func TestPostOrderNil(t *testing.T) {
	assert.Nil(t, component.PostOrder(nil))
}

func TestIsLeaf(t *testing.T) {
	root := sampleTree()
	assert.False(t, root.IsLeaf())
	assert.True(t, root.Find("a.go").IsLeaf())

	emptyDir := &component.Component{ID: "d", Qualifier: component.QualifierDirectory}
	assert.True(t, emptyDir.IsLeaf())
}

func TestValidate(t *testing.T) {
	require.NoError(t, sampleTree().Validate())

	dup := sampleTree()
	dup.Children[1].ID = "a.go"
	assert.ErrorContains(t, dup.Validate(), "duplicate component id a.go")

	shared := sampleTree()
	shared.Children = append(shared.Children, shared.Children[0])
	assert.Error(t, shared.Validate())

	fileWithChildren := &component.Component{
		ID: "f", Qualifier: component.QualifierFile,
		Children: []*component.Component{{ID: "g", Qualifier: component.QualifierFile}},
	}
	assert.ErrorContains(t, fileWithChildren.Validate(), "has children")

	var nilTree *component.Component
	assert.Error(t, nilTree.Validate())
}

func TestFindAndCount(t *testing.T) {
	root := sampleTree()
	assert.Equal(t, 5, root.Count())
	require.NotNil(t, root.Find("b.go"))
	assert.Nil(t, root.Find("missing"))
}

func TestSaveLoadTree(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.json")
	require.NoError(t, component.SaveTree(path, sampleTree()))

	loaded, err := component.LoadTree(path)
	require.NoError(t, err)
	assert.Equal(t, ids(component.PostOrder(sampleTree())), ids(component.PostOrder(loaded)))
}
