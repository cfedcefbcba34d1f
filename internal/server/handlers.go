package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dithap/dithap-explorer/internal/curves"
	"github.com/dithap/dithap-explorer/internal/genes"
	"github.com/dithap/dithap-explorer/internal/genesets"
	"github.com/dithap/dithap-explorer/internal/output"
	"github.com/dithap/dithap-explorer/internal/stringdb"
)

// selection picks genes either by registry set (key or label) or by free
// text resolved against the gene table.
type selection struct {
	Set   string `json:"set"`
	Genes string `json:"genes"`
}

type resolution struct {
	Total      int      `json:"total"`
	Resolved   []string `json:"resolved"`
	Unresolved []string `json:"unresolved"`
	Summary    string   `json:"summary"`
}

func toResolution(r genes.Resolution) *resolution {
	return &resolution{
		Total:      r.Total,
		Resolved:   r.Resolved,
		Unresolved: r.Unresolved,
		Summary:    r.Summary(),
	}
}

var errEmptySelection = errors.New("either set or genes is required")

// selectGenes returns the systematic IDs of sel. The resolution is nil
// when a registry set was selected.
func (s *Server) selectGenes(sel selection, tbl *genes.Table) ([]string, *resolution, int, error) {
	switch {
	case sel.Set != "":
		reg, err := s.data.GeneSets()
		if err != nil {
			return nil, nil, statusFor(err), err
		}
		set, ok := reg.Find(sel.Set)
		if !ok {
			return nil, nil, http.StatusNotFound, fmt.Errorf("unknown gene set %q", sel.Set)
		}
		return set.Genes, nil, http.StatusOK, nil
	case strings.TrimSpace(sel.Genes) != "":
		res := tbl.Resolve(genes.SplitTokens(sel.Genes))
		return res.Resolved, toResolution(res), http.StatusOK, nil
	default:
		return nil, nil, http.StatusBadRequest, errEmptySelection
	}
}

type geneSetInfo struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Size  int    `json:"size"`
}

func (s *Server) geneSetsHandler(c *gin.Context) {
	reg, err := s.data.GeneSets()
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	out := make([]geneSetInfo, 0, len(reg.Sets()))
	for _, set := range reg.Sets() {
		out = append(out, geneSetInfo{Key: set.Key(), Label: set.Label, Size: len(set.Genes)})
	}
	c.JSON(http.StatusOK, out)
}

type resolveRequest struct {
	Genes string `json:"genes" binding:"required"`
}

func (s *Server) resolveHandler(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	tbl, err := s.data.Genes()
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, toResolution(tbl.Resolve(genes.SplitTokens(req.Genes))))
}

type enrichRequest struct {
	Query      selection `json:"query"`
	Background selection `json:"background"`
}

type analysisResponse struct {
	Name    string                 `json:"name"`
	Rows    []output.EnrichmentRow `json:"rows"`
	Message string                 `json:"message,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

type enrichResponse struct {
	Query       *resolution        `json:"query,omitempty"`
	Background  *resolution        `json:"background,omitempty"`
	QueryN      int                `json:"query_n"`
	BackgroundN int                `json:"background_n"`
	Analyses    []analysisResponse `json:"analyses"`
}

func (s *Server) enrichHandler(c *gin.Context) {
	var req enrichRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if req.Background == (selection{}) {
		req.Background.Set = genesets.LabelAllCoding
	}

	tbl, err := s.data.Genes()
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	query, qRes, status, err := s.selectGenes(req.Query, tbl)
	if err != nil {
		abortWithError(c, status, err)
		return
	}
	background, bRes, status, err := s.selectGenes(req.Background, tbl)
	if err != nil {
		abortWithError(c, status, err)
		return
	}
	if len(background) == 0 {
		abortWithError(c, http.StatusBadRequest, errors.New("background is empty"))
		return
	}
	analyses, err := s.data.Analyses()
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}

	resp := enrichResponse{
		Query:       qRes,
		Background:  bRes,
		QueryN:      len(query),
		BackgroundN: len(background),
	}
	for _, r := range s.engine.RunAll(query, background, analyses, s.workers) {
		ar := analysisResponse{Name: r.Name, Rows: []output.EnrichmentRow{}}
		switch {
		case r.Err != nil:
			ar.Error = r.Err.Error()
		case len(r.Records) == 0:
			ar.Message = output.NoSignificantTerms
		default:
			ar.Rows = output.FormatEnrichment(r.Records, tbl.IDToName())
		}
		resp.Analyses = append(resp.Analyses, ar)
	}
	c.JSON(http.StatusOK, resp)
}

type geneResponse struct {
	Query        string              `json:"query"`
	MatchedBy    genes.MatchKind     `json:"matched_by"`
	Updated      bool                `json:"updated"`
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Product      string              `json:"product"`
	Synonyms     []string            `json:"synonyms"`
	Type         string              `json:"type"`
	PomBase      string              `json:"pombase"`
	Essentiality *genes.Essentiality `json:"essentiality,omitempty"`
}

func (s *Server) geneHandler(c *gin.Context) {
	tbl, err := s.data.Genes()
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	query := strings.TrimSpace(c.Param("query"))
	m, ok := tbl.Lookup(query)
	if !ok {
		abortWithError(c, http.StatusNotFound, fmt.Errorf("gene %q not found", query))
		return
	}
	g := m.Gene
	c.JSON(http.StatusOK, geneResponse{
		Query:        m.Query,
		MatchedBy:    m.Kind,
		Updated:      m.Updated(),
		ID:           g.ID,
		Name:         g.Name,
		Product:      g.Product,
		Synonyms:     g.Synonyms,
		Type:         g.Type,
		PomBase:      genes.PomBaseURL(g.ID),
		Essentiality: g.Essentiality,
	})
}

type curvePoint struct {
	curves.Point
	Name string `json:"name"`
}

type curvesResponse struct {
	Resolution *resolution              `json:"resolution,omitempty"`
	Points     []curvePoint             `json:"points"`
	Profile    []curves.ProfilePoint    `json:"profile"`
	Insertions []curves.InsertionCurves `json:"insertions,omitempty"`
}

func (s *Server) curvesHandler(c *gin.Context) {
	if s.curves == nil {
		abortWithError(c, http.StatusServiceUnavailable, errors.New("depletion curves not configured"))
		return
	}
	withInsertions := false
	if v := c.Query("insertions"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, fmt.Errorf("invalid insertions flag %q", v))
			return
		}
		withInsertions = b
	}
	if withInsertions && !s.curveFiles.HasInsertions() {
		abortWithError(c, http.StatusServiceUnavailable, errors.New("insertion curves not configured"))
		return
	}
	if s.curveFiles.GeneLFC != "" {
		if _, err := s.curves.Sync(s.curveFiles); err != nil {
			abortWithError(c, http.StatusInternalServerError, err)
			return
		}
	}
	tbl, err := s.data.Genes()
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	ids, res, status, err := s.selectGenes(selection{Set: c.Query("set"), Genes: c.Query("genes")}, tbl)
	if err != nil {
		abortWithError(c, status, err)
		return
	}

	pts, err := s.curves.Points(ids)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}
	prof, err := s.curves.SetProfile(ids)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	resp := curvesResponse{
		Resolution: res,
		Points:     make([]curvePoint, len(pts)),
		Profile:    prof,
	}
	for i, p := range pts {
		resp.Points[i] = curvePoint{Point: p, Name: tbl.Name(p.Gene)}
	}
	if resp.Profile == nil {
		resp.Profile = []curves.ProfilePoint{}
	}
	if withInsertions {
		resp.Insertions = make([]curves.InsertionCurves, 0, len(ids))
		for _, id := range ids {
			ic, err := s.curves.InsertionPoints(id)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, err)
				return
			}
			resp.Insertions = append(resp.Insertions, ic)
		}
	}
	c.JSON(http.StatusOK, resp)
}

type stringRequest struct {
	Query      selection `json:"query"`
	Background selection `json:"background"`
}

type stringResponse struct {
	Groups  []stringdb.Group `json:"groups"`
	Warning string           `json:"warning,omitempty"`
}

func (s *Server) stringHandler(c *gin.Context) {
	if s.stringDB == nil {
		abortWithError(c, http.StatusServiceUnavailable, errors.New("STRING client not configured"))
		return
	}
	var req stringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, err)
		return
	}
	if req.Background == (selection{}) {
		req.Background.Set = genesets.LabelAllCoding
	}

	tbl, err := s.data.Genes()
	if err != nil {
		abortWithError(c, statusFor(err), err)
		return
	}
	query, _, status, err := s.selectGenes(req.Query, tbl)
	if err != nil {
		abortWithError(c, status, err)
		return
	}
	background, _, status, err := s.selectGenes(req.Background, tbl)
	if err != nil {
		abortWithError(c, status, err)
		return
	}

	terms, err := s.stringDB.Enrich(c.Request.Context(), query, background)
	var ue *stringdb.UpstreamError
	switch {
	case errors.As(err, &ue):
		s.logger.Warn("STRING enrichment unavailable", zap.Error(err))
		c.JSON(http.StatusOK, stringResponse{Groups: []stringdb.Group{}, Warning: ue.Error()})
		return
	case err != nil:
		abortWithError(c, http.StatusInternalServerError, err)
		return
	}

	resp := stringResponse{Groups: stringdb.GroupByCategory(terms)}
	if len(resp.Groups) == 0 {
		resp.Groups = []stringdb.Group{}
		resp.Warning = "No significant STRING enrichment found"
	}
	c.JSON(http.StatusOK, resp)
}
