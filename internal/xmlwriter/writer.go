// =============================================================================
// PCA Consolidation - XML Report Writer
// =============================================================================
//
// This module renders the consolidated plan as XML for systems that import
// the PCA (the municipal transparency portal, procurement ERPs).
//
// XML STRUCTURE:
//   <pca gerado="2024-05-02T10:00:00Z">
//     <totais grupos="2" quantidade="700" valor="3150.00"/>
//     <tipo nome="MATERIAIS DE CONSUMO">
//       <item n="1">
//         <descricao>Arroz tipo 1</descricao>
//         <unidade>kg</unidade>
//         <detalhamentoTecnico/>
//         <quantidadeTotal>700</quantidadeTotal>
//         <valorTotal>3150.00</valorTotal>
//         <dataContratacaoOficial>2024-03-01</dataContratacaoOficial>
//         <prioridadeOficial>Alta</prioridadeOficial>
//         <secretarias>
//           <secretaria nome="Educação">
//             <quantidade>500</quantidade>
//             ...
//           </secretaria>
//         </secretarias>
//       </item>
//     </tipo>
//   </pca>
//
// Element names follow the JSON field names of the consolidated records.
// Document types appear in the order given; secretariats are sorted by name.
//
// =============================================================================

package xmlwriter

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/ginjaninja78/pca-consolidation/internal/consolidator"
	"github.com/ginjaninja78/pca-consolidation/internal/types"
)

// =============================================================================
// GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for XML generation.
type GenerateOptions struct {
	// IncludeXMLDeclaration adds <?xml version="1.0" encoding="UTF-8"?>.
	// Default: true
	IncludeXMLDeclaration bool

	// Indent is the string used for each indentation level.
	// Default: "  "
	Indent string

	// RootElement is the name of the root element. Default: "pca"
	RootElement string

	// GeneratedAt is written to the root's "gerado" attribute when set.
	GeneratedAt time.Time
}

// DefaultGenerateOptions returns the default generation options.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		IncludeXMLDeclaration: true,
		Indent:                "  ",
		RootElement:           "pca",
	}
}

// =============================================================================
// XML GENERATION
// =============================================================================

// Generate renders byType, walking document types in typeOrder. Types in
// byType missing from typeOrder are appended in sorted order.
func Generate(byType map[string][]types.ConsolidatedGroup, typeOrder []string) ([]byte, error) {
	return GenerateWithOptions(byType, typeOrder, DefaultGenerateOptions())
}

// GenerateWithOptions renders byType with custom options.
func GenerateWithOptions(byType map[string][]types.ConsolidatedGroup, typeOrder []string, options GenerateOptions) ([]byte, error) {
	if options.RootElement == "" {
		return nil, fmt.Errorf("root element name is required")
	}

	var buffer bytes.Buffer

	if options.IncludeXMLDeclaration {
		buffer.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	}

	root := buildDocument(byType, typeOrder, options)
	writeElement(&buffer, root, options.Indent, 0)

	return buffer.Bytes(), nil
}

// XMLElement is a generic element of the output tree.
type XMLElement struct {
	XMLName    xml.Name
	Attributes []xml.Attr
	Value      string
	Children   []XMLElement
}

// buildDocument builds the element tree for the whole plan.
func buildDocument(byType map[string][]types.ConsolidatedGroup, typeOrder []string, options GenerateOptions) XMLElement {
	root := XMLElement{XMLName: xml.Name{Local: options.RootElement}}

	if !options.GeneratedAt.IsZero() {
		root.Attributes = append(root.Attributes, attr("gerado", options.GeneratedAt.UTC().Format(time.RFC3339)))
	}

	totals := consolidator.Sum(byType)
	root.Children = append(root.Children, XMLElement{
		XMLName: xml.Name{Local: "totais"},
		Attributes: []xml.Attr{
			attr("grupos", strconv.Itoa(totals.Groups)),
			attr("quantidade", formatQuantity(totals.Quantity)),
			attr("valor", formatMoney(totals.Value)),
		},
	})

	for _, docType := range consolidator.OrderTypes(byType, typeOrder) {
		groups := byType[docType]
		typeElement := XMLElement{
			XMLName:    xml.Name{Local: "tipo"},
			Attributes: []xml.Attr{attr("nome", docType)},
		}

		for i, group := range groups {
			typeElement.Children = append(typeElement.Children, buildItemElement(group, i+1))
		}

		root.Children = append(root.Children, typeElement)
	}

	return root
}

// buildItemElement builds the <item> element for one consolidated group.
func buildItemElement(group types.ConsolidatedGroup, n int) XMLElement {
	item := XMLElement{
		XMLName:    xml.Name{Local: "item"},
		Attributes: []xml.Attr{attr("n", strconv.Itoa(n))},
		Children: []XMLElement{
			createSimpleElement("descricao", group.Description),
			createSimpleElement("unidade", group.Unit),
			createSimpleElement("detalhamentoTecnico", group.TechnicalDetail),
			createSimpleElement("quantidadeTotal", formatQuantity(group.TotalQuantity)),
			createSimpleElement("valorTotal", formatMoney(group.TotalValue)),
			createSimpleElement("dataContratacaoOficial", group.OfficialContractingDate),
			createSimpleElement("prioridadeOficial", string(group.OfficialPriority)),
		},
	}

	names := make([]string, 0, len(group.Secretariats))
	for name := range group.Secretariats {
		names = append(names, name)
	}
	sort.Strings(names)

	secretariats := XMLElement{XMLName: xml.Name{Local: "secretarias"}}
	for _, name := range names {
		c := group.Secretariats[name]
		secretariats.Children = append(secretariats.Children, XMLElement{
			XMLName:    xml.Name{Local: "secretaria"},
			Attributes: []xml.Attr{attr("nome", name)},
			Children: []XMLElement{
				createSimpleElement("quantidade", formatQuantity(c.Quantity)),
				createSimpleElement("valor", formatMoney(c.Value)),
				createSimpleElement("prioridade", string(c.Priority)),
				createSimpleElement("dataContratacao", c.ContractingDate),
				createSimpleElement("documentoId", c.DocumentID),
			},
		})
	}
	item.Children = append(item.Children, secretariats)

	return item
}

// createSimpleElement creates an element with a text value.
func createSimpleElement(name, value string) XMLElement {
	return XMLElement{
		XMLName: xml.Name{Local: name},
		Value:   value,
	}
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

// formatQuantity writes quantities without trailing zeros ("700", "2.5").
func formatQuantity(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatMoney writes values with two decimals and a dot separator.
func formatMoney(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// =============================================================================
// XML WRITING
// =============================================================================

// writeElement writes an element and its children with indentation.
func writeElement(buffer *bytes.Buffer, element XMLElement, indent string, level int) {
	for i := 0; i < level; i++ {
		buffer.WriteString(indent)
	}

	buffer.WriteString("<")
	buffer.WriteString(element.XMLName.Local)

	for _, a := range element.Attributes {
		buffer.WriteString(fmt.Sprintf(" %s=\"%s\"", a.Name.Local, escapeXML(a.Value)))
	}

	if len(element.Children) == 0 && element.Value == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteString(">")

	if element.Value != "" {
		buffer.WriteString(escapeXML(element.Value))
	} else {
		buffer.WriteString("\n")

		for _, child := range element.Children {
			writeElement(buffer, child, indent, level+1)
		}

		for i := 0; i < level; i++ {
			buffer.WriteString(indent)
		}
	}

	buffer.WriteString("</")
	buffer.WriteString(element.XMLName.Local)
	buffer.WriteString(">\n")
}

// escapeXML escapes special characters in XML text and attribute values.
func escapeXML(s string) string {
	var buffer bytes.Buffer

	for _, r := range s {
		switch r {
		case '&':
			buffer.WriteString("&amp;")
		case '<':
			buffer.WriteString("&lt;")
		case '>':
			buffer.WriteString("&gt;")
		case '"':
			buffer.WriteString("&quot;")
		case '\'':
			buffer.WriteString("&apos;")
		default:
			buffer.WriteRune(r)
		}
	}

	return buffer.String()
}
