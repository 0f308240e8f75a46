package importer

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/GTDGit/gtd_console/internal/utils"
)

// TemplateColumn is one column of the downloadable product template.
type TemplateColumn struct {
	Header   string
	Required bool
	Example  string
}

// ProductTemplate lists the product import columns with one sample row.
var ProductTemplate = []TemplateColumn{
	{Header: "product_name", Required: true, Example: "Widget"},
	{Header: "category", Example: "Tools"},
	{Header: "brand", Example: "Acme"},
	{Header: "description", Example: "Steel widget, 10cm"},
	{Header: "stock", Example: "25"},
	{Header: "reorder_level", Example: "5"},
	{Header: "cost_price", Example: "120.00"},
	{Header: "selling_price", Example: "150.00"},
	{Header: "hsn_code", Example: "8205"},
	{Header: "gst_rate", Example: "18.00"},
}

const templateSheet = "Products"

// WriteTemplate writes the product template in the requested format.
func WriteTemplate(w io.Writer, format Format) error {
	switch format {
	case FormatCSV:
		return writeCSVTemplate(w)
	case FormatXLSX:
		return writeXLSXTemplate(w)
	default:
		return fmt.Errorf("template format %q: %w", format, utils.ErrUnsupportedFormat)
	}
}

func writeCSVTemplate(w io.Writer) error {
	writer := csv.NewWriter(w)

	headers := make([]string, len(ProductTemplate))
	sample := make([]string, len(ProductTemplate))
	for i, col := range ProductTemplate {
		headers[i] = col.Header
		sample[i] = col.Example
	}
	if err := writer.Write(headers); err != nil {
		return err
	}
	if err := writer.Write(sample); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func writeXLSXTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", templateSheet); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	requiredStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	for i, col := range ProductTemplate {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		header, style := col.Header, headerStyle
		if col.Required {
			header, style = col.Header+" *", requiredStyle
		}
		f.SetCellValue(templateSheet, cell, header)
		f.SetCellStyle(templateSheet, cell, cell, style)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(templateSheet, colName, colName, 18)

		sample, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellValue(templateSheet, sample, col.Example)
	}

	return f.Write(w)
}
