package storage

import (
	"encoding/json"

	"github.com/imedaveo16/imed-dz/internal/core/domain"
)

// toDomain converts a database model to a domain entity.
func toDomain(m ReportModel) *domain.Report {
	report := &domain.Report{
		ID:          m.ID,
		SessionID:   m.SessionID,
		Coordinate:  domain.Coordinate{Lat: m.Latitude, Lng: m.Longitude},
		Source:      domain.Source(m.Source),
		Address:     m.Address,
		Category:    domain.Category(m.Category),
		Description: m.Description,
		Status:      domain.ReportStatus(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}

	if m.Flags != "" {
		_ = json.Unmarshal([]byte(m.Flags), &report.Flags)
	}
	for _, am := range m.Attachments {
		report.Attachments = append(report.Attachments, attachmentToDomain(am))
	}

	return report
}

// toModel converts a domain entity to a database model.
func toModel(r domain.Report) ReportModel {
	model := ReportModel{
		ID:          r.ID,
		SessionID:   r.SessionID,
		Latitude:    r.Coordinate.Lat,
		Longitude:   r.Coordinate.Lng,
		Source:      string(r.Source),
		Address:     r.Address,
		Category:    string(r.Category),
		Description: r.Description,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}

	if len(r.Flags) > 0 {
		fBytes, _ := json.Marshal(r.Flags)
		model.Flags = string(fBytes)
	}
	for _, att := range r.Attachments {
		model.Attachments = append(model.Attachments, attachmentToModel(att))
	}

	return model
}

func attachmentToDomain(m AttachmentModel) domain.Attachment {
	return domain.Attachment{
		ID:              m.ID,
		ReportID:        m.ReportID,
		Kind:            domain.AttachmentKind(m.Kind),
		Filename:        m.Filename,
		StoredPath:      m.StoredPath,
		MIME:            m.MIME,
		SizeBytes:       m.SizeBytes,
		DurationSeconds: m.DurationSeconds,
		CreatedAt:       m.CreatedAt,
	}
}

func attachmentToModel(att domain.Attachment) AttachmentModel {
	return AttachmentModel{
		ID:              att.ID,
		ReportID:        att.ReportID,
		Kind:            string(att.Kind),
		Filename:        att.Filename,
		StoredPath:      att.StoredPath,
		MIME:            att.MIME,
		SizeBytes:       att.SizeBytes,
		DurationSeconds: att.DurationSeconds,
		CreatedAt:       att.CreatedAt,
	}
}
