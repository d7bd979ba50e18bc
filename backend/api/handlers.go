package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/andi/docconvert/backend/models"
	"github.com/andi/docconvert/backend/pool"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const shareValidity = 24 * time.Hour

// ============== Conversion Handlers ==============

// ConvertResponse is returned on intake
type ConvertResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

func (s *Server) convertFile(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(400).JSON(ErrorResponse{Error: "Missing multipart file field 'file'"})
	}

	ext := filepath.Ext(fileHeader.Filename)
	targetFormat, ok := models.TargetFormat(ext)
	if !ok {
		return c.Status(400).JSON(ErrorResponse{
			Error: fmt.Sprintf("Unsupported file type %q. Supported: %s",
				ext, strings.Join(models.SupportedExtensions(), ", ")),
		})
	}

	keepLocal := s.keepLocal
	if v := c.FormValue("keep_local", c.Query("keep_local")); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			keepLocal = parsed
		}
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.Status(500).JSON(ErrorResponse{Error: "Failed to read uploaded file"})
	}
	defer src.Close()

	taskID := uuid.New().String()
	inputPath, err := s.store.SaveUpload(taskID, strings.ToLower(ext), src)
	if err != nil {
		s.log.Errorf("Failed to save upload for task %s: %v", taskID, err)
		return c.Status(500).JSON(ErrorResponse{Error: "Failed to store uploaded file"})
	}

	task := &models.Task{
		ID:               taskID,
		OriginalFilename: fileHeader.Filename,
		TargetFormat:     targetFormat,
		InputPath:        inputPath,
		KeepLocal:        keepLocal,
		CreatedAt:        time.Now(),
	}
	if err := s.reg.Create(task); err != nil {
		return c.Status(500).JSON(ErrorResponse{Error: err.Error()})
	}

	results, err := s.pool.Submit(pool.Request{
		InputPath:    inputPath,
		OutputDir:    s.store.OutputDir(taskID),
		TargetFormat: targetFormat,
	})
	if err != nil {
		s.reg.MarkFailed(taskID, fmt.Sprintf("submission rejected: %v", err))
		// The failed record exists, so hand back its id alongside the rejection.
		return c.Status(503).JSON(fiber.Map{
			"error":   "Converter is overloaded, try again later",
			"task_id": taskID,
		})
	}

	s.publisher.Watch(taskID, results)

	return c.JSON(ConvertResponse{TaskID: taskID, Status: models.TaskStatusProcessing})
}

func (s *Server) getStatus(c *fiber.Ctx) error {
	id := c.Params("id")

	task, ok := s.reg.Get(id)
	if !ok {
		return c.Status(404).JSON(ErrorResponse{Error: "Task not found"})
	}

	return c.JSON(task)
}

func (s *Server) downloadFile(c *fiber.Ctx) error {
	id := c.Params("id")

	task, ok := s.reg.Get(id)
	if !ok {
		return c.Status(404).JSON(ErrorResponse{Error: "Task not found"})
	}

	if task.Status != models.TaskStatusCompleted {
		return c.Status(400).JSON(ErrorResponse{
			Error: fmt.Sprintf("Task is not completed, current status: %s", task.Status),
		})
	}

	// Prefer the durable copy: return a pointer, not a byte stream.
	if task.RemoteObjectKey != "" {
		resp := fiber.Map{
			"bucket":  task.RemoteBucket,
			"key":     task.RemoteObjectKey,
			"message": "Artifact is stored remotely, fetch it via the URL",
		}
		if url, err := s.gateway.ShareURL(c.Context(), task.RemoteObjectKey, shareValidity); err == nil {
			resp["url"] = url
		}
		return c.JSON(resp)
	}

	if task.LocalReclaimed {
		return c.Status(410).JSON(ErrorResponse{Error: "Local artifact was reclaimed and no remote copy exists"})
	}
	if _, err := os.Stat(task.OutputPath); err != nil {
		return c.Status(410).JSON(ErrorResponse{Error: "Local artifact is no longer present"})
	}

	return c.Download(task.OutputPath, task.DownloadName())
}

func (s *Server) getShareLink(c *fiber.Ctx) error {
	id := c.Params("id")

	task, ok := s.reg.Get(id)
	if !ok {
		return c.Status(404).JSON(ErrorResponse{Error: "Task not found"})
	}

	if task.Status != models.TaskStatusCompleted {
		return c.Status(400).JSON(ErrorResponse{
			Error: fmt.Sprintf("Task is not completed, current status: %s", task.Status),
		})
	}

	if task.RemoteObjectKey == "" {
		return c.Status(400).JSON(ErrorResponse{Error: "No shared copy available, use the download endpoint"})
	}

	url, err := s.gateway.ShareURL(c.Context(), task.RemoteObjectKey, shareValidity)
	if err != nil {
		return c.Status(502).JSON(ErrorResponse{Error: fmt.Sprintf("Failed to create share link: %v", err)})
	}

	return c.JSON(fiber.Map{
		"url":              url,
		"expires":          "24h",
		"download_command": fmt.Sprintf("curl -o %q %q", task.DownloadName(), url),
		"wget_command":     fmt.Sprintf("wget -O %q %q", task.DownloadName(), url),
	})
}

func (s *Server) healthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return c.JSON(fiber.Map{
		"status":          "ok",
		"service":         "docconvert",
		"minio_available": s.gateway.Ping(ctx) == nil,
	})
}

// ============== Monitoring Handlers ==============

func (s *Server) listHistory(c *fiber.Ctx) error {
	if s.history == nil {
		return c.Status(503).JSON(ErrorResponse{Error: "Conversion history is disabled"})
	}

	status := c.Query("status", "")
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	if limit > 1000 {
		limit = 1000
	}

	records, err := s.history.List(status, limit, offset)
	if err != nil {
		return c.Status(500).JSON(ErrorResponse{Error: err.Error()})
	}

	count, err := s.history.Count(status)
	if err != nil {
		return c.Status(500).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(fiber.Map{
		"records": records,
		"total":   count,
		"limit":   limit,
		"offset":  offset,
	})
}

func (s *Server) getPoolStats(c *fiber.Ctx) error {
	return c.JSON(s.pool.Stats())
}
