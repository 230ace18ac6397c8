package domain

import "testing"

func TestTemplateRender(t *testing.T) {
	company := "Acme"
	service := "Solar panels"
	lead := Lead{Name: "Bob", Company: &company, InterestedIn: &service}

	tpl := WhatsAppTemplate{Content: "Hi {{Customer_Name}}, {{Employee_Name}} here. " +
		"Does {{Company_Name}} still need {{Service_Name}}? Thanks {{Customer_Name}}. {{Unknown}}"}

	got := tpl.Render(TemplateValuesFor(lead, "Alice"))
	want := "Hi Bob, Alice here. Does Acme still need Solar panels? Thanks Bob. {{Unknown}}"
	if got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestTemplateRenderFallbacks(t *testing.T) {
	blank := "  "
	lead := Lead{Company: &blank}

	tpl := WhatsAppTemplate{Content: "{{Customer_Name}}|{{Employee_Name}}|{{Company_Name}}|{{Service_Name}}"}
	got := tpl.Render(TemplateValuesFor(lead, ""))
	want := "Customer|our team|your company|our services"
	if got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestParseTemplateCategory(t *testing.T) {
	if c, ok := ParseTemplateCategory(""); !ok || c != TemplateFollowUp {
		t.Fatalf("empty category = %q, %v", c, ok)
	}
	if c, ok := ParseTemplateCategory(" promotion "); !ok || c != TemplatePromotion {
		t.Fatalf("promotion = %q, %v", c, ok)
	}
	if _, ok := ParseTemplateCategory("spam"); ok {
		t.Fatal("unknown category accepted")
	}
}
