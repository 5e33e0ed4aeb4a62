package lang

func init() {
	Formats["text"] = &Format{
		Name:       "text",
		Extensions: []string{".proforma", ".pfm", ".pf"},
	}
}
