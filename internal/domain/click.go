package domain

import "time"

// ClickEvent is one recorded visit to a Link. Rows are immutable after
// creation: they are only ever inserted (by click accounting or bulk import)
// and deleted (by link cleanup or hard delete).
type ClickEvent struct {
	ID        int64     `gorm:"primaryKey;column:id" json:"id"`
	LinkID    int64     `gorm:"column:link_id;not null;index" json:"linkId"`
	ClickedAt time.Time `gorm:"column:clicked_at;index;autoCreateTime" json:"clickedAt"`
	IPAddress *string   `gorm:"column:ip_address;size:45" json:"ipAddress,omitempty"`
	UserAgent *string   `gorm:"column:user_agent;type:text" json:"userAgent,omitempty"`
	Referer   *string   `gorm:"column:referer;size:500" json:"referer,omitempty"`

	// Geography bundle, resolved from request headers by the geo resolver.
	Country      *string `gorm:"column:country;size:2" json:"country,omitempty"`
	City         *string `gorm:"column:city;size:100" json:"city,omitempty"`
	CountryName  *string `gorm:"column:country_name;size:100" json:"countryName,omitempty"`
	CountryID    *string `gorm:"column:country_id;size:32" json:"countryId,omitempty"`
	ProvinceName *string `gorm:"column:province_name;size:100" json:"provinceName,omitempty"`
	ProvinceID   *string `gorm:"column:province_id;size:32" json:"provinceId,omitempty"`
	CityName     *string `gorm:"column:city_name;size:100" json:"cityName,omitempty"`
	CityID       *string `gorm:"column:city_id;size:32" json:"cityId,omitempty"`

	// DeviceType is derived from the User-Agent at recording time:
	// 'desktop', 'mobile', 'tablet', 'bot' or 'unknown'.
	DeviceType *string `gorm:"column:device_type;size:10" json:"deviceType,omitempty"`

	// Relationships
	Link *Link `gorm:"foreignKey:LinkID" json:"-"`
}

// TableName returns the table name used by GORM.
func (ClickEvent) TableName() string {
	return "click_events"
}
