package catalog

import "testing"

func TestNormalizeColumn(t *testing.T) {
	cases := map[string]string{
		"Nome":           "nome",
		"Preço":          "preco",
		"  Data   Cadastro ": "data_cadastro",
		"DESCRIÇÃO":      "descricao",
		"preco unitario": "preco_unitario",
	}
	for in, want := range cases {
		if got := NormalizeColumn(in); got != want {
			t.Fatalf("NormalizeColumn(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRowFieldResolvesAliases(t *testing.T) {
	row := Row{"nome": "Arroz", "preco": "5,99", "marca": " Tio João "}
	if got := row.Field("name"); got != "Arroz" {
		t.Fatalf("name = %q", got)
	}
	if got := row.Field("price"); got != "5,99" {
		t.Fatalf("price = %q", got)
	}
	if got := row.Field("brand"); got != "Tio João" {
		t.Fatalf("brand = %q", got)
	}
	if got := row.Field("category"); got != "" {
		t.Fatalf("category = %q, want empty", got)
	}
}

func TestDedupKeyFoldsAccentsAndCase(t *testing.T) {
	if dedupKey("AÇÚCAR", "União") != dedupKey("acucar", "uniao") {
		t.Fatal("expected folded keys to match")
	}
	if dedupKey("Arroz", "A") == dedupKey("Arroz", "B") {
		t.Fatal("expected different brands to produce different keys")
	}
}
