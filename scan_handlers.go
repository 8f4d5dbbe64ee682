package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"

	"tipscan/models"
	"tipscan/pkg/amount"
	"tipscan/pkg/ocr"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	_ "golang.org/x/image/webp"
	"gorm.io/gorm"
)

const maxUploadBytes = 5 * 1024 * 1024

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// maxManualAmount matches the extractor's plausibility bound.
var maxManualAmount = decimal.NewFromInt(100000)

func scanResponse(s models.Scan) gin.H {
	var message any
	if s.Message != "" {
		message = s.Message
	}
	return gin.H{
		"id":              s.ID,
		"source":          s.Source,
		"amount":          s.Amount,
		"confidence":      s.Confidence,
		"manualAmount":    s.ManualAmount,
		"effectiveAmount": s.EffectiveAmount(),
		"allAmounts":      s.Candidates,
		"ranked":          s.Ranked,
		"profile":         s.Profile,
		"passes":          s.Passes,
		"message":         message,
		"imageRef":        s.ImageRef,
		"createdAt":       s.CreatedAt,
	}
}

// createScanHandler OCRs an uploaded receipt photo. A newer upload by the
// same user supersedes this one; a superseded scan is never stored.
func createScanHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large (max 5MB)"})
		return
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(file.Header.Get("Content-Type"), ";", 2)[0]))
	if !allowedImageTypes[ct] {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported image type (jpeg, png, gif or webp)"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file unreadable"})
		return
	}
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	f.Close()
	if err != nil || len(data) > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file unreadable"})
		return
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not decode image"})
		return
	}

	ctx := c.Request.Context()
	l := reqLog(c)
	ticket := sessions.Begin(user.Username)
	res, err := scanner.Scan(ctx, img, ocr.ScanOptions{
		Progress:  ticket.Report,
		Cancelled: ticket.Cancelled,
		OnPass:    ticket.EnterPass,
	})
	switch {
	case errors.Is(err, ocr.ErrCancelled):
		if ticket.Finish(err) {
			// still current, so the client went away
			c.JSON(http.StatusRequestTimeout, gin.H{"error": "scan cancelled"})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": "superseded by a newer scan"})
		return
	case err != nil:
		l.Error().Err(err).Str("file", file.Filename).Msg("scan failed")
		ticket.Finish(err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": ocr.ErrRecognition.Error()})
		return
	}

	ref, ok := archiveScan(ctx, l, ticket, user.Username, data, ct)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": "superseded by a newer scan"})
		return
	}

	sum := sha256.Sum256(data)
	scan := models.Scan{
		UserID:      user.ID,
		Source:      models.SourceImage,
		FileName:    file.Filename,
		ContentHash: hex.EncodeToString(sum[:]),
		ImageRef:    ref,
		Profile:     string(res.Profile),
		Passes:      len(res.Passes),
	}
	scan.ApplyExtraction(res.Data, res.Ranked)
	if err := db.Create(&scan).Error; err != nil {
		l.Error().Err(err).Msg("saving scan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.JSON(http.StatusOK, scanResponse(scan))
}

// archiveScan stores the receipt image and finishes the ticket. It returns
// false when a newer scan took over, before or during the upload; an object
// already written is then removed again. Archive failures are logged only.
func archiveScan(ctx context.Context, l zerolog.Logger, ticket *ocr.Ticket, owner string, data []byte, contentType string) (string, bool) {
	if !ticket.Current() {
		return "", false
	}
	ref, err := store.Put(ctx, owner, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		l.Warn().Err(err).Msg("archiving receipt image failed")
		ref = ""
	}
	if !ticket.Finish(nil) {
		if ref != "" {
			if err := store.Delete(ctx, ref); err != nil {
				l.Warn().Err(err).Str("ref", ref).Msg("removing superseded receipt image")
			}
		}
		return "", false
	}
	return ref, true
}

// createTextScanHandler stores an extraction from pasted receipt text.
func createTextScanHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var req struct {
		Text     string `json:"text" binding:"required"`
		FileName string `json:"file_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res := ocr.ScanText(req.Text)
	sum := sha256.Sum256([]byte(req.Text))
	scan := models.Scan{
		UserID:      user.ID,
		Source:      models.SourceText,
		FileName:    req.FileName,
		ContentHash: hex.EncodeToString(sum[:]),
		Passes:      len(res.Passes),
	}
	scan.ApplyExtraction(res.Data, res.Ranked)
	if err := db.Create(&scan).Error; err != nil {
		reqLog(c).Error().Err(err).Msg("saving scan")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.JSON(http.StatusOK, scanResponse(scan))
}

// activeScanHandler reports the caller's latest scan session.
func activeScanHandler(c *gin.Context) {
	c.JSON(http.StatusOK, sessions.Status(c.GetString("username")))
}

// listScansHandler lists recent scans; admin sees all.
func listScansHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	var scans []models.Scan
	q := db.Model(&models.Scan{})
	if !isAdmin(c) {
		q = q.Where("user_id = ?", user.ID)
	}
	if err := q.Order("id desc").Limit(200).Find(&scans).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	out := make([]gin.H, 0, len(scans))
	for _, s := range scans {
		out = append(out, scanResponse(s))
	}
	c.JSON(http.StatusOK, out)
}

func getScanHandler(c *gin.Context) {
	scan, ok := loadOwnedScan(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, scanResponse(*scan))
}

// overrideAmountHandler sets the manual amount, either from one of the ranked
// alternatives or typed in. The extracted amount is kept.
func overrideAmountHandler(c *gin.Context) {
	var req struct {
		CandidateIndex *int             `json:"candidate_index"`
		Amount         *decimal.Decimal `json:"amount"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if (req.CandidateIndex == nil) == (req.Amount == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "exactly one of candidate_index or amount is required"})
		return
	}
	scan, ok := loadOwnedScan(c)
	if !ok {
		return
	}
	var v decimal.Decimal
	if req.CandidateIndex != nil {
		i := *req.CandidateIndex
		if i < 0 || i >= len(scan.Ranked) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "candidate_index out of range"})
			return
		}
		v = decimal.NewFromFloat(scan.Ranked[i].Value)
	} else {
		v = *req.Amount
	}
	v = v.Round(2)
	if !v.IsPositive() || v.GreaterThanOrEqual(maxManualAmount) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be between 0 and " + amount.FormatValue(100000)})
		return
	}
	scan.ManualAmount = &v
	if err := db.Model(scan).Update("manual_amount", v).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, scanResponse(*scan))
}

func clearOverrideHandler(c *gin.Context) {
	scan, ok := loadOwnedScan(c)
	if !ok {
		return
	}
	if err := db.Model(scan).Update("manual_amount", gorm.Expr("NULL")).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	scan.ManualAmount = nil
	c.JSON(http.StatusOK, scanResponse(*scan))
}

// loadOwnedScan loads :id if the caller owns it or is admin. It writes the
// error response itself.
func loadOwnedScan(c *gin.Context) (*models.Scan, bool) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return nil, false
	}
	var scan models.Scan
	if err := db.First(&scan, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		}
		return nil, false
	}
	if !isAdmin(c) && scan.UserID != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return nil, false
	}
	return &scan, true
}

// scanSummaryHandler sums effective amounts per month.
func scanSummaryHandler(c *gin.Context) {
	user, ok := getUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}
	type monthTotal struct {
		Month string          `json:"month"`
		Count int64           `json:"count"`
		Total decimal.Decimal `json:"total"`
	}
	q := db.Model(&models.Scan{})
	if !isAdmin(c) {
		q = q.Where("user_id = ?", user.ID)
	}
	results := []monthTotal{}
	err := q.Select("to_char(created_at, 'YYYY-MM') AS month, count(*) AS count, coalesce(sum(coalesce(manual_amount, amount)), 0) AS total").
		Group("month").
		Order("month").
		Scan(&results).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, results)
}
