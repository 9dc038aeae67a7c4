package introspection

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/hanpama/thundergql/internal/executor"
	"github.com/hanpama/thundergql/internal/language"
	"github.com/hanpama/thundergql/internal/schema"
)

const testSDL = `
"Entry point."
type Query {
  hello: String
  search(term: String = "sky", first: Int! = 10, size: Size = SMALL, sizes: [Size!] = [LARGE]): [Media!]!
}

interface Media { id: ID! }

type Image implements Media {
  id: ID!
  name: String @deprecated(reason: "use label")
  label: String
}

enum Size { SMALL LARGE @deprecated }
`

func run(t *testing.T, query string) map[string]any {
	t.Helper()
	sch, doc, err := schema.Build(&ast.Source{Name: "test.graphql", Input: testSDL})
	require.NoError(t, err)

	base := executor.NewMockRuntime(map[string]executor.MockResolver{
		"Query.hello": executor.Value("world"),
	})
	w := Wrap(base, sch)

	qdoc, errs := language.ParseAndValidate(doc, query)
	require.Nil(t, errs)
	res := executor.NewExecutor(w.Runtime, w.Schema).ExecuteRequest(context.Background(), qdoc, "", nil, nil)
	require.Empty(t, res.Errors)
	return res.Data.(map[string]any)
}

func TestSchemaQuery(t *testing.T) {
	data := run(t, `{ hello __typename __schema { queryType { name description fields { name } } mutationType { name } } }`)
	require.Equal(t, "world", data["hello"], "other fields reach the base runtime")
	require.Equal(t, "Query", data["__typename"])

	want := map[string]any{
		"queryType": map[string]any{
			"name":        "Query",
			"description": "Entry point.",
			"fields": []any{
				map[string]any{"name": "hello"},
				map[string]any{"name": "search"},
			},
		},
		"mutationType": nil,
	}
	if diff := cmp.Diff(want, data["__schema"]); diff != "" {
		t.Errorf("__schema mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemaTypes(t *testing.T) {
	data := run(t, `{ __schema { types { name } directives { name } } }`)
	s := data["__schema"].(map[string]any)

	var types []string
	for _, tt := range s["types"].([]any) {
		types = append(types, tt.(map[string]any)["name"].(string))
	}
	require.Contains(t, types, "Image")
	require.Contains(t, types, "__Schema")
	require.Contains(t, types, "String")

	var dirs []string
	for _, d := range s["directives"].([]any) {
		dirs = append(dirs, d.(map[string]any)["name"].(string))
	}
	require.Contains(t, dirs, "deprecated")
	require.Contains(t, dirs, "skip")
}

func TestTypeQuery(t *testing.T) {
	data := run(t, `{
		__type(name: "Image") {
			kind
			name
			interfaces { name }
			possibleTypes { name }
			fields(includeDeprecated: true) {
				name
				isDeprecated
				deprecationReason
				type { kind name ofType { kind name } }
			}
		}
	}`)

	want := map[string]any{
		"kind":          "OBJECT",
		"name":          "Image",
		"interfaces":    []any{map[string]any{"name": "Media"}},
		"possibleTypes": nil,
		"fields": []any{
			map[string]any{
				"name": "id", "isDeprecated": false, "deprecationReason": nil,
				"type": map[string]any{"kind": "NON_NULL", "name": nil, "ofType": map[string]any{"kind": "SCALAR", "name": "ID"}},
			},
			map[string]any{
				"name": "name", "isDeprecated": true, "deprecationReason": "use label",
				"type": map[string]any{"kind": "SCALAR", "name": "String", "ofType": nil},
			},
			map[string]any{
				"name": "label", "isDeprecated": false, "deprecationReason": nil,
				"type": map[string]any{"kind": "SCALAR", "name": "String", "ofType": nil},
			},
		},
	}
	if diff := cmp.Diff(want, data["__type"]); diff != "" {
		t.Errorf("__type mismatch (-want +got):\n%s", diff)
	}
}

func TestTypeQuery_DeprecatedHiddenByDefault(t *testing.T) {
	data := run(t, `{
		image: __type(name: "Image") { fields { name } }
		size: __type(name: "Size") { enumValues { name } all: enumValues(includeDeprecated: true) { name } }
		media: __type(name: "Media") { possibleTypes { name } }
		missing: __type(name: "Missing") { name }
	}`)
	require.Equal(t, []any{
		map[string]any{"name": "id"},
		map[string]any{"name": "label"},
	}, data["image"].(map[string]any)["fields"])

	size := data["size"].(map[string]any)
	require.Len(t, size["enumValues"], 1)
	require.Len(t, size["all"], 2)

	require.Equal(t, []any{map[string]any{"name": "Image"}}, data["media"].(map[string]any)["possibleTypes"])
	require.Nil(t, data["missing"])
}

func TestDefaultValues(t *testing.T) {
	data := run(t, `{ __type(name: "Query") { fields { name args { name defaultValue } } } }`)
	fields := data["__type"].(map[string]any)["fields"].([]any)
	search := fields[1].(map[string]any)
	require.Equal(t, "search", search["name"])

	got := map[string]any{}
	for _, a := range search["args"].([]any) {
		arg := a.(map[string]any)
		got[arg["name"].(string)] = arg["defaultValue"]
	}
	require.Equal(t, map[string]any{
		"term":  `"sky"`,
		"first": "10",
		"size":  "SMALL",
		"sizes": "[LARGE]",
	}, got)
}
