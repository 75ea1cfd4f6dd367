// Package printing renders order contracts and invoices.
//
// Documents are produced in two stages: a TemplateEngine fills an embedded
// HTML template with order data, and an optional PDFConverter turns the
// HTML into a PDF through headless Chrome. Without a converter the HTML
// itself is the artifact.
//
// Example usage:
//
//	chrome, err := NewChromedpRenderer(&ChromedpConfig{RemoteURL: "ws://chrome:9222"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	renderer := NewDocumentRenderer(NewTemplateEngine(), chrome, logger)
//
//	out, err := renderer.Render(ctx, integration.Document{Kind: integration.DocumentInvoice, ...})
package printing
