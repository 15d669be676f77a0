package model

import (
	"database/sql/driver"
	"fmt"
	"time"

	"tableconfig-editor/internal/schema"
)

// KeyList is a key-list column (PrimaryKeys, ScdJoinKeys, ScdSequenceKeys).
// Historical rows carry either a JSON array or a comma-separated string;
// reads accept both, writes always emit the canonical JSON array.
type KeyList []string

// Value implements driver.Valuer.
func (kl KeyList) Value() (driver.Value, error) {
	return schema.EncodeKeyList(kl), nil
}

// Scan implements sql.Scanner.
func (kl *KeyList) Scan(value interface{}) error {
	if value == nil {
		*kl = KeyList{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*kl = schema.ParseKeyList(string(v))
	case string:
		*kl = schema.ParseKeyList(v)
	default:
		return fmt.Errorf("cannot scan %T into KeyList", value)
	}
	return nil
}

// TableConfig is one row of the table-configuration metadata table: the
// identity of an ingested table, its canonical schema document, and the
// three key-list columns consumed by the SCD pipeline.
type TableConfig struct {
	TableKey        string    `gorm:"column:TableKey;primaryKey;size:255" json:"tableKey"`
	SourceSystem    string    `gorm:"column:SourceSystem;size:255;index" json:"sourceSystem"`
	Name            string    `gorm:"column:TableName;size:255;index" json:"tableName"`
	DataSchema      string    `gorm:"column:DataSchema;type:longtext" json:"dataSchema"`
	PrimaryKeys     KeyList   `gorm:"column:PrimaryKeys;type:text" json:"primaryKeys"`
	ScdJoinKeys     KeyList   `gorm:"column:ScdJoinKeys;type:text" json:"scdJoinKeys"`
	ScdSequenceKeys KeyList   `gorm:"column:ScdSequenceKeys;type:text" json:"scdSequenceKeys"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the table name for the TableConfig model
func (TableConfig) TableName() string {
	return "table_config"
}
