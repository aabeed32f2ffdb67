package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/forPelevin/clipsai/internal/domain/layout"
	"github.com/forPelevin/clipsai/internal/domain/steps"
	"github.com/forPelevin/clipsai/internal/jobs"
	"github.com/forPelevin/clipsai/internal/types"
)

const (
	clipPattern      = "clip_*.mp4"
	sourcePattern    = "input.*"
	subtitledPattern = "*_subtitled.mp4"
	srtPattern       = "*.srt"
	designedPattern  = "*_vertical.mp4"

	defaultCropExpansion = 3.0
)

type healthResponse struct {
	Status             string            `json:"status"`
	Timestamp          string            `json:"timestamp"`
	Directories        map[string]string `json:"directories"`
	PyannoteConfigured bool              `json:"pyannote_configured"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	l := s.cfg.Layout
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: s.cfg.Now().Format(time.RFC3339),
		Directories: map[string]string{
			layout.VideosName:   l.VideosDir,
			layout.ClipsName:    l.ClipsDir,
			layout.SubsName:     l.SubsDir,
			layout.SubsAlias:    l.SubsDir,
			layout.DesignedName: l.DesignedDir,
		},
		PyannoteConfigured: s.cfg.Token != "",
	})
}

type processVideoRequest struct {
	URL     string `json:"url"`
	VideoID string `json:"video_id"`
}

type processVideoResponse struct {
	Status      string           `json:"status"`
	VideoID     string           `json:"video_id"`
	JobID       string           `json:"job_id,omitempty"`
	SourceVideo *types.FileInfo  `json:"source_video"`
	ClipsCount  int              `json:"clips_count"`
	Clips       []types.FileInfo `json:"clips"`
	Message     string           `json:"message"`
}

type subtitlesRequest struct {
	VideoID string `json:"video_id"`
}

type subtitlesResponse struct {
	Status              string           `json:"status"`
	VideoID             string           `json:"video_id"`
	JobID               string           `json:"job_id,omitempty"`
	SubtitledClipsCount int              `json:"subtitled_clips_count"`
	SubtitledClips      []types.FileInfo `json:"subtitled_clips"`
	SrtFilesCount       int              `json:"srt_files_count"`
	SrtFiles            []types.FileInfo `json:"srt_files"`
	Message             string           `json:"message"`
}

type designRequest struct {
	VideoID          string   `json:"video_id"`
	CropExpansion    *float64 `json:"crop_expansion"`
	DisableSmartCrop bool     `json:"disable_smart_crop"`
	UseSubtitles     *bool    `json:"use_subtitles"`
}

func (d designRequest) options() steps.DesignOptions {
	opts := steps.DesignOptions{
		ExplicitDirs:     true,
		CropExpansion:    defaultCropExpansion,
		DisableSmartCrop: d.DisableSmartCrop,
	}
	if d.CropExpansion != nil {
		opts.CropExpansion = *d.CropExpansion
	}
	if d.UseSubtitles != nil && !*d.UseSubtitles {
		opts.DisableSubtitles = true
	}
	return opts
}

type designSettings struct {
	CropExpansion    float64 `json:"crop_expansion"`
	SmartCropEnabled bool    `json:"smart_crop_enabled"`
	SubtitlesEnabled bool    `json:"subtitles_enabled"`
}

type designResponse struct {
	Status             string           `json:"status"`
	VideoID            string           `json:"video_id"`
	JobID              string           `json:"job_id,omitempty"`
	DesignedClipsCount int              `json:"designed_clips_count"`
	DesignedClips      []types.FileInfo `json:"designed_clips"`
	Settings           designSettings   `json:"settings"`
	Message            string           `json:"message"`
}

func orDefault(id string) string {
	if id == "" {
		return "default"
	}
	return id
}

// The do* methods expect s.mu to be held. A non-nil error response means the
// step failed and the body is ready to send.

func (s *Server) doProcessVideo(ctx context.Context, in processVideoRequest) (processVideoResponse, *errorBody) {
	l := s.cfg.Layout
	if _, err := layout.Remove(l.ClipsDir, clipPattern); err != nil {
		return processVideoResponse{}, &errorBody{Error: "Video processing failed", Details: err.Error()}
	}

	run := s.runStep(ctx, steps.Clips{}, types.Request{URL: in.URL})
	if run.Err != nil {
		return processVideoResponse{}, stepErrorBody("Video processing failed", run)
	}

	clips := s.list(ctx, l.ClipsDir, clipPattern)
	var source *types.FileInfo
	if vids := s.list(ctx, l.VideosDir, sourcePattern); len(vids) > 0 {
		source = &vids[0]
	}
	return processVideoResponse{
		Status:      "success",
		VideoID:     orDefault(in.VideoID),
		JobID:       run.JobID,
		SourceVideo: source,
		ClipsCount:  len(clips),
		Clips:       clips,
		Message:     fmt.Sprintf("Generated %d clips from video", len(clips)),
	}, nil
}

func (s *Server) doAddSubtitles(ctx context.Context, in subtitlesRequest) (subtitlesResponse, *errorBody) {
	l := s.cfg.Layout
	for _, pattern := range []string{"*.mp4", srtPattern} {
		if _, err := layout.Remove(l.SubsDir, pattern); err != nil {
			return subtitlesResponse{}, &errorBody{Error: "Subtitle generation failed", Details: err.Error()}
		}
	}

	run := s.runStep(ctx, steps.Subtitles{}, types.Request{})
	if run.Err != nil {
		return subtitlesResponse{}, stepErrorBody("Subtitle generation failed", run)
	}

	subbed := s.list(ctx, l.SubsDir, subtitledPattern)
	srts := s.list(ctx, l.SubsDir, srtPattern)
	return subtitlesResponse{
		Status:              "success",
		VideoID:             orDefault(in.VideoID),
		JobID:               run.JobID,
		SubtitledClipsCount: len(subbed),
		SubtitledClips:      subbed,
		SrtFilesCount:       len(srts),
		SrtFiles:            srts,
		Message:             fmt.Sprintf("Added subtitles to %d clips", len(subbed)),
	}, nil
}

func (s *Server) doApplyDesign(ctx context.Context, in designRequest) (designResponse, *errorBody) {
	l := s.cfg.Layout
	if _, err := layout.Remove(l.DesignedDir, "*.mp4"); err != nil {
		return designResponse{}, &errorBody{Error: "Design application failed", Details: err.Error()}
	}

	opts := in.options()
	req := types.Request{UseToken: s.cfg.Token != "", Token: s.cfg.Token}
	run := s.runStep(ctx, steps.Design{Opts: opts}, req)
	if run.Err != nil {
		return designResponse{}, stepErrorBody("Design application failed", run)
	}

	designed := s.list(ctx, l.DesignedDir, designedPattern)
	return designResponse{
		Status:             "success",
		VideoID:            orDefault(in.VideoID),
		JobID:              run.JobID,
		DesignedClipsCount: len(designed),
		DesignedClips:      designed,
		Settings: designSettings{
			CropExpansion:    opts.CropExpansion,
			SmartCropEnabled: !opts.DisableSmartCrop,
			SubtitlesEnabled: !opts.DisableSubtitles,
		},
		Message: fmt.Sprintf("Applied design to %d clips", len(designed)),
	}, nil
}

func stepErrorBody(msg string, run stepRun) *errorBody {
	details := run.Stderr
	if details == "" {
		details = run.Err.Error()
	}
	return &errorBody{Error: msg, Details: details, JobID: run.JobID}
}

func (s *Server) handleProcessVideo(w http.ResponseWriter, r *http.Request) {
	var in processVideoRequest
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	in.URL = strings.TrimSpace(in.URL)
	if in.URL == "" {
		writeError(w, http.StatusBadRequest, "Missing 'url' parameter", "")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	resp, errBody := s.doProcessVideo(context.WithoutCancel(r.Context()), in)
	if errBody != nil {
		writeJSON(w, http.StatusInternalServerError, errBody)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddSubtitles(w http.ResponseWriter, r *http.Request) {
	var in subtitlesRequest
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	resp, errBody := s.doAddSubtitles(context.WithoutCancel(r.Context()), in)
	if errBody != nil {
		writeJSON(w, http.StatusInternalServerError, errBody)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleApplyDesign(w http.ResponseWriter, r *http.Request) {
	var in designRequest
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if in.CropExpansion != nil && *in.CropExpansion <= 0 {
		writeError(w, http.StatusBadRequest, "crop_expansion must be > 0", "")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	resp, errBody := s.doApplyDesign(context.WithoutCancel(r.Context()), in)
	if errBody != nil {
		writeJSON(w, http.StatusInternalServerError, errBody)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type pipelineRequest struct {
	URL              string   `json:"url"`
	VideoID          string   `json:"video_id"`
	CropExpansion    *float64 `json:"crop_expansion"`
	DisableSmartCrop bool     `json:"disable_smart_crop"`
	UseSubtitles     *bool    `json:"use_subtitles"`
}

type pipelineSummary struct {
	ClipsGenerated int `json:"clips_generated"`
	SubtitlesAdded int `json:"subtitles_added"`
	DesignsCreated int `json:"designs_created"`
}

type pipelineDetails struct {
	Step1Clips     processVideoResponse `json:"step1_clips"`
	Step2Subtitles subtitlesResponse    `json:"step2_subtitles"`
	Step3Design    designResponse       `json:"step3_design"`
}

type pipelineResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Summary pipelineSummary `json:"summary"`
	Details pipelineDetails `json:"details"`
}

func (s *Server) handleCompletePipeline(w http.ResponseWriter, r *http.Request) {
	var in pipelineRequest
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	in.URL = strings.TrimSpace(in.URL)
	if in.URL == "" {
		writeError(w, http.StatusBadRequest, "Missing 'url' parameter", "")
		return
	}
	if in.CropExpansion != nil && *in.CropExpansion <= 0 {
		writeError(w, http.StatusBadRequest, "crop_expansion must be > 0", "")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ctx := context.WithoutCancel(r.Context())

	s.cfg.Log.Info().Msg("step 1/3: processing video and creating clips")
	step1, errBody := s.doProcessVideo(ctx, processVideoRequest{URL: in.URL, VideoID: in.VideoID})
	if errBody != nil {
		writeJSON(w, http.StatusInternalServerError, errBody)
		return
	}

	s.cfg.Log.Info().Msg("step 2/3: adding subtitles")
	step2, errBody := s.doAddSubtitles(ctx, subtitlesRequest{VideoID: in.VideoID})
	if errBody != nil {
		writeJSON(w, http.StatusInternalServerError, errBody)
		return
	}

	s.cfg.Log.Info().Msg("step 3/3: applying vertical design")
	step3, errBody := s.doApplyDesign(ctx, designRequest{
		VideoID:          in.VideoID,
		CropExpansion:    in.CropExpansion,
		DisableSmartCrop: in.DisableSmartCrop,
		UseSubtitles:     in.UseSubtitles,
	})
	if errBody != nil {
		writeJSON(w, http.StatusInternalServerError, errBody)
		return
	}

	writeJSON(w, http.StatusOK, pipelineResponse{
		Status:  "success",
		Message: "Complete pipeline executed successfully",
		Summary: pipelineSummary{
			ClipsGenerated: step1.ClipsCount,
			SubtitlesAdded: step2.SubtitledClipsCount,
			DesignsCreated: step3.DesignedClipsCount,
		},
		Details: pipelineDetails{Step1Clips: step1, Step2Subtitles: step2, Step3Design: step3},
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !filepath.IsLocal(name) || filepath.Base(name) != name {
		writeError(w, http.StatusBadRequest, "invalid file name", "")
		return
	}
	kind := r.URL.Query().Get("type")
	if kind == "" {
		kind = layout.DesignedName
	}
	dir, ok := layout.Dir(s.cfg.Layout, kind)
	if !ok {
		dir = s.cfg.Layout.DesignedDir
	}

	path := filepath.Join(dir, name)
	st, err := os.Stat(path)
	if err != nil || !st.Mode().IsRegular() {
		writeError(w, http.StatusNotFound, "File not found", "")
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

type listFilesResponse struct {
	Status string                      `json:"status"`
	Files  map[string][]types.FileInfo `json:"files"`
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("type")
	switch kind {
	case "":
		kind = "all"
	case layout.SubsAlias:
		kind = layout.SubsName
	}
	want := func(k string) bool { return kind == "all" || kind == k }

	l := s.cfg.Layout
	out := map[string][]types.FileInfo{}
	if want(layout.ClipsName) {
		out["clips"] = s.list(r.Context(), l.ClipsDir, clipPattern)
	}
	if want(layout.SubsName) {
		out["subtitled"] = s.list(r.Context(), l.SubsDir, subtitledPattern)
		out["srt_files"] = s.list(r.Context(), l.SubsDir, srtPattern)
	}
	if want(layout.DesignedName) {
		out["designed"] = s.list(r.Context(), l.DesignedDir, designedPattern)
	}
	if want(layout.VideosName) {
		out["source_videos"] = s.list(r.Context(), l.VideosDir, "*")
	}
	writeJSON(w, http.StatusOK, listFilesResponse{Status: "success", Files: out})
}

type cleanupRequest struct {
	Directories []string `json:"directories"`
}

type cleanupResponse struct {
	Status  string         `json:"status"`
	Cleaned map[string]int `json:"cleaned"`
	Message string         `json:"message"`
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	var in cleanupRequest
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	if in.Directories == nil {
		in.Directories = []string{layout.ClipsName, layout.SubsName, layout.DesignedName, layout.VideosName}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cleaned := map[string]int{}
	total := 0
	for _, name := range in.Directories {
		dir, ok := layout.Dir(s.cfg.Layout, name)
		if !ok {
			continue
		}
		n, err := layout.Remove(dir, "*")
		if err != nil {
			writeError(w, http.StatusInternalServerError, "cleanup failed", err.Error())
			return
		}
		cleaned[name] = n
		total += n
	}
	writeJSON(w, http.StatusOK, cleanupResponse{
		Status:  "success",
		Cleaned: cleaned,
		Message: fmt.Sprintf("Cleaned %d files", total),
	})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Jobs == nil {
		writeError(w, http.StatusNotFound, "job history is disabled", "")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", "")
			return
		}
		limit = n
	}
	list, err := s.cfg.Jobs.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list jobs failed", err.Error())
		return
	}
	if list == nil {
		list = []jobs.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "jobs": list})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Jobs == nil {
		writeError(w, http.StatusNotFound, "job history is disabled", "")
		return
	}
	j, err := s.cfg.Jobs.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, jobs.ErrNotFound) {
		writeError(w, http.StatusNotFound, "job not found", "")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "get job failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, j)
}
