package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeUpload(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDecodeCSVSemicolon(t *testing.T) {
	path := writeUpload(t, "catalog.csv", []byte("Nome;Marca;Preço\nArroz;Tio João;5,99\nFeijão;;8,50\n"))

	table, err := DecodeFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Columns) != 3 || table.Columns[2] != "preco" {
		t.Fatalf("columns = %v", table.Columns)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d", len(table.Rows))
	}
	if table.Rows[0].Field("name") != "Arroz" || table.Rows[1].Field("price") != "8,50" {
		t.Fatalf("unexpected rows: %v", table.Rows)
	}
}

func TestDecodeCSVFallsBackThroughDelimiters(t *testing.T) {
	path := writeUpload(t, "catalog.csv", []byte("nome,preco\nArroz,\"5,99\"\n"))

	table, err := DecodeFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Columns) != 2 {
		t.Fatalf("columns = %v", table.Columns)
	}
	if got := table.Rows[0].Field("price"); got != "5,99" {
		t.Fatalf("price = %q", got)
	}
}

func TestDecodeTXTWithoutDelimiter(t *testing.T) {
	path := writeUpload(t, "catalog.txt", []byte("nome\nArroz\nFeijão\n"))

	table, err := DecodeFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Columns) != 1 || table.Columns[0] != "nome" {
		t.Fatalf("columns = %v", table.Columns)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d", len(table.Rows))
	}
}

func TestDecodeLatin1CSV(t *testing.T) {
	// "Feijão;Preço" in ISO-8859-1.
	data := []byte("nome;pre\xe7o\nFeij\xe3o;8,50\n")
	path := writeUpload(t, "legacy.csv", data)

	table, err := DecodeFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := table.Rows[0].Field("name"); got != "Feijão" {
		t.Fatalf("name = %q, want decoded Feijão", got)
	}
}

func TestDecodeJSON(t *testing.T) {
	payload := `[{"nome":"Arroz","preco":5.99},{"nome":"Feijão","preco":"8,50","marca":"Camil"}]`
	path := writeUpload(t, "catalog.json", []byte(payload))

	table, err := DecodeFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d", len(table.Rows))
	}
	if got := table.Rows[0].Field("price"); got != "5.99" {
		t.Fatalf("price = %q", got)
	}
	if got := table.Rows[1].Field("brand"); got != "Camil" {
		t.Fatalf("brand = %q", got)
	}
}

func TestDecodeXML(t *testing.T) {
	payload := `<produtos>
		<produto><nome>Arroz</nome><preco>5,99</preco></produto>
		<produto><nome>Feijão</nome><preco>8,50</preco><marca>Camil</marca></produto>
	</produtos>`
	path := writeUpload(t, "catalog.xml", []byte(payload))

	table, err := DecodeFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d", len(table.Rows))
	}
	if got := table.Rows[1].Field("name"); got != "Feijão" {
		t.Fatalf("name = %q", got)
	}
	if got := table.Rows[0].Field("price"); got != "5,99" {
		t.Fatalf("price = %q", got)
	}
}

func TestDecodeRejectsUnknownExtension(t *testing.T) {
	path := writeUpload(t, "catalog.pdf", []byte("%PDF-1.4"))
	if _, err := DecodeFile(path); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}
