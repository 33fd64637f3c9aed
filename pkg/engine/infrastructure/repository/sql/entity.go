package sql

import (
	"time"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
)

// BatchTableName is the table holding parent and child batches.
const BatchTableName = "act_batch"

// BatchEntity is the persistence schema of model.Batch.
type BatchEntity struct {
	ID            string     `gorm:"column:id;primaryKey"`
	Type          string     `gorm:"column:type"`
	Status        string     `gorm:"column:status"`
	ParentID      string     `gorm:"column:parent_id"`
	ChildOrder    int        `gorm:"column:child_order"`
	Children      []string   `gorm:"column:children;serializer:json"`
	SearchKey     string     `gorm:"column:search_key"`
	SearchKey2    string     `gorm:"column:search_key2"`
	Document      string     `gorm:"column:document"`
	ResultPayload *string    `gorm:"column:result_payload"`
	CreateTime    time.Time  `gorm:"column:create_time"`
	CompleteTime  *time.Time `gorm:"column:complete_time"`
	LastUpdated   time.Time  `gorm:"column:last_updated"`
	Version       int        `gorm:"column:version"`
}

func (BatchEntity) TableName() string {
	return BatchTableName
}

func fromDomainBatch(b *model.Batch) *BatchEntity {
	if b == nil {
		return nil
	}
	children := b.Children
	if children == nil {
		children = []string{}
	}
	return &BatchEntity{
		ID:            b.ID,
		Type:          b.Type,
		Status:        string(b.Status),
		ParentID:      b.ParentID,
		ChildOrder:    b.ChildOrder,
		Children:      append([]string(nil), children...),
		SearchKey:     b.SearchKey,
		SearchKey2:    b.SearchKey2,
		Document:      b.Document,
		ResultPayload: b.ResultPayload,
		CreateTime:    b.CreateTime,
		CompleteTime:  b.CompleteTime,
		LastUpdated:   b.LastUpdated,
		Version:       b.Version,
	}
}

func toDomainBatch(e *BatchEntity) *model.Batch {
	if e == nil {
		return nil
	}
	children := e.Children
	if children == nil {
		children = []string{}
	}
	return &model.Batch{
		ID:            e.ID,
		Type:          e.Type,
		Status:        model.BatchStatus(e.Status),
		ParentID:      e.ParentID,
		ChildOrder:    e.ChildOrder,
		Children:      children,
		SearchKey:     e.SearchKey,
		SearchKey2:    e.SearchKey2,
		Document:      e.Document,
		ResultPayload: e.ResultPayload,
		CreateTime:    e.CreateTime,
		CompleteTime:  e.CompleteTime,
		LastUpdated:   e.LastUpdated,
		Version:       e.Version,
	}
}
