package dashboardserver

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/chrissnell/trafficdash/internal/constants"
	"github.com/chrissnell/trafficdash/internal/dashboard"
	"github.com/chrissnell/trafficdash/internal/excel"
	"github.com/chrissnell/trafficdash/internal/render"
	"github.com/chrissnell/trafficdash/internal/traffic"
	"github.com/chrissnell/trafficdash/pkg/responseformat"
	"github.com/gorilla/mux"
)

const indexTemplate = "index.html.tmpl"

// Handlers contains all HTTP handlers for the dashboard server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

type chartRef struct {
	Name  string
	Title string
	URL   string
}

type weatherOption struct {
	Label   string
	Checked bool
}

type pageData struct {
	PageTitle string
	Heading   string
	Intro     string
	Version   string
	Years     []int
	Weather   []weatherOption
	TotalRows int
	View      *dashboard.View
	Notice    string
	Charts    []chartRef
	ExportURL string
}

// evaluate parses the selection from the request and runs the pipeline. Invalid selections
// map to 400.
func (h *Handlers) evaluate(req *http.Request) (*dashboard.View, int, error) {
	p := h.controller.pipeline
	sel, err := p.ParseSelection(req.URL.Query())
	if err != nil {
		return nil, statusFor(err), err
	}
	v, err := p.Evaluate(sel)
	if err != nil {
		return nil, statusFor(err), err
	}
	return v, http.StatusOK, nil
}

func statusFor(err error) int {
	if errors.Is(err, traffic.ErrInvalidSelection) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// ServeDashboard renders the dashboard page for the selection in the query string
func (h *Handlers) ServeDashboard(w http.ResponseWriter, req *http.Request) {
	v, status, err := h.evaluate(req)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	choices := h.controller.pipeline.Choices()
	selected := make(map[string]bool, len(v.Selection.Weather))
	for _, l := range v.Selection.Weather {
		selected[l] = true
	}
	weather := make([]weatherOption, 0, len(choices.Weather))
	for _, l := range choices.Weather {
		weather = append(weather, weatherOption{Label: l, Checked: selected[l]})
	}

	query := dashboard.Query(v.Selection).Encode()
	charts := make([]chartRef, 0, len(dashboard.ChartNames))
	for _, name := range dashboard.ChartNames {
		charts = append(charts, chartRef{
			Name:  name,
			Title: dashboard.ChartTitles[name],
			URL:   "/charts/" + url.PathEscape(name) + ".png?" + query,
		})
	}

	data := pageData{
		PageTitle: h.controller.config.PageTitle,
		Heading:   dashboard.Title,
		Intro:     dashboard.Intro,
		Version:   constants.Version,
		Years:     choices.Years,
		Weather:   weather,
		TotalRows: choices.RowCount,
		View:      v,
		Charts:    charts,
		ExportURL: "/export/preview.xlsx?" + query,
	}
	if v.Empty {
		data.Notice = render.NoDataMessage
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.controller.index.Execute(w, data); err != nil {
		h.controller.logger.Errorf("error executing dashboard template: %v", err)
	}
}

// ServeChart renders one chart as PNG
func (h *Handlers) ServeChart(w http.ResponseWriter, req *http.Request) {
	name := mux.Vars(req)["name"]
	if _, ok := dashboard.ChartTitles[name]; !ok {
		http.NotFound(w, req)
		return
	}

	v, status, err := h.evaluate(req)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	png, err := dashboard.RenderChart(h.controller.renderer, v, name, h.controller.charts)
	if err != nil {
		h.controller.logger.Errorw("chart render failed", "chart", name, "error", err)
		http.Error(w, "chart render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

// GetOptions returns the years, weather labels and default selection
func (h *Handlers) GetOptions(w http.ResponseWriter, req *http.Request) {
	if err := h.formatter.WriteResponse(w, req, http.StatusOK, h.controller.pipeline.Choices(), nil); err != nil {
		h.controller.logger.Errorf("error encoding options: %v", err)
	}
}

// GetDashboard returns the evaluated view for the selection in the query string
func (h *Handlers) GetDashboard(w http.ResponseWriter, req *http.Request) {
	v, status, err := h.evaluate(req)
	if err != nil {
		h.formatter.WriteError(w, req, status, err.Error())
		return
	}
	if err := h.formatter.WriteResponse(w, req, http.StatusOK, v, nil); err != nil {
		h.controller.logger.Errorf("error encoding dashboard view: %v", err)
	}
}

// ExportPreview returns the preview rows and aggregates of the selection as an XLSX workbook
func (h *Handlers) ExportPreview(w http.ResponseWriter, req *http.Request) {
	v, status, err := h.evaluate(req)
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	b, err := h.controller.exporter.Workbook(v)
	if err != nil {
		h.controller.logger.Errorf("error building preview workbook: %v", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	filename := "traffic-preview-" + strconv.Itoa(v.Selection.Year) + ".xlsx"
	w.Header().Set("Content-Type", excel.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Write(b)
}
