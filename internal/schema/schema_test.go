package schema

import "testing"

func TestDescriptorSchema(t *testing.T) {
	ok := []byte(`{"type":"file","matches":{"platforms":["*"],"extensions":["png"]}}`)
	if err := Validate(Descriptor, ok); err != nil {
		t.Fatalf("valid descriptor rejected: %v", err)
	}

	bad := []string{
		`{"profile":{}}`,
		`{"type":"file","matches":{"platforms":"linux"}}`,
		`{"type":"tool.exe","bin":{"path":{"linux":3}}}`,
		`[]`,
	}
	for _, doc := range bad {
		if err := Validate(Descriptor, []byte(doc)); err == nil {
			t.Errorf("expected %s to be rejected", doc)
		}
	}
}

func TestManifestSchema(t *testing.T) {
	if err := Validate(Manifest, map[string]any{"version": "1.0.2", "url": "https://x/y.zip"}); err != nil {
		t.Fatalf("valid manifest rejected: %v", err)
	}
	if err := Validate(Manifest, []byte(`{"version":3}`)); err == nil {
		t.Fatal("numeric version should be rejected")
	}
}

func TestUnknownSchema(t *testing.T) {
	if err := Validate("nope.json", nil); err == nil {
		t.Fatal("expected error for unknown schema")
	}
}

func TestValidateSchemaInline(t *testing.T) {
	schema := []byte(`{"type":"object","required":["a"]}`)
	if err := ValidateSchema("inline", schema, []byte(`{"a":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := ValidateSchema("inline", schema, []byte(`{}`)); err == nil {
		t.Fatal("expected missing key to fail")
	}
	if err := ValidateSchema("inline", nil, nil); err == nil {
		t.Fatal("expected empty schema to fail")
	}
}
