package portal

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Selectors of the iSYS search portal.
const (
	SelSearchBox    = "#isys_edt_search"
	SelSearchButton = "#isys_btn_search_hdr"
	SelResultsTable = "table.results-table"
	SelResultRows   = "table.results-table tr"
	SelTitleLink    = "a[onclick^='isys.viewer.show']"
	SelDocLink      = "a[id^='isys_var_url_']"
	SelSortByDate   = "a[href*='/datetime/sort/']"
	SelViewer       = "#viewer_toolbar"
	SelDownloadBtn  = "#viewer_toolbar .btn.btn-download"
	SelDownloadItem = "#viewer_toolbar_download li"
	SelCloseBtn     = "#viewer_toolbar .btn.btn-close"
	TextExportLabel = "As Text"
)

// Result is the static part of a result row, read from the page HTML.
type Result struct {
	Index    int
	Title    string
	HasTitle bool
	Link     string
}

// ParseResults reads every row matched by SelResultRows in page order. Rows
// without a title link are kept with HasTitle false so indexes stay aligned
// with the live DOM.
func ParseResults(html string) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("portal: parse results: %w", err)
	}

	var out []Result
	doc.Find(SelResultRows).Each(func(i int, row *goquery.Selection) {
		r := Result{Index: i}
		if a := row.Find(SelTitleLink).First(); a.Length() > 0 {
			r.HasTitle = true
			r.Title = strings.Join(strings.Fields(a.Text()), " ")
		}
		if href, ok := row.Find(SelDocLink).First().Attr("href"); ok {
			r.Link = strings.TrimSpace(href)
		}
		out = append(out, r)
	})
	return out, nil
}
