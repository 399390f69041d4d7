package domain

import "time"

// WaterLevelStatus 水位分级状态（按危险程度递增排序）
type WaterLevelStatus string

const (
	WaterBelowNormal WaterLevelStatus = "below_normal"
	WaterNormal      WaterLevelStatus = "normal"
	WaterWarning     WaterLevelStatus = "warning"
	WaterDanger      WaterLevelStatus = "danger"
	WaterCritical    WaterLevelStatus = "critical"
)

var waterStatusRank = map[WaterLevelStatus]int{
	WaterBelowNormal: 0,
	WaterNormal:      1,
	WaterWarning:     2,
	WaterDanger:      3,
	WaterCritical:    4,
}

// Rank 状态序号，用于单调性比较
func (s WaterLevelStatus) Rank() int { return waterStatusRank[s] }

// Hazardous 是否处于危险区间（danger 及以上）
func (s WaterLevelStatus) Hazardous() bool { return s.Rank() >= waterStatusRank[WaterDanger] }

// RainIntensity 降雨强度分级（按强度递增排序）
type RainIntensity string

const (
	RainNone      RainIntensity = "none"
	RainLight     RainIntensity = "light"
	RainModerate  RainIntensity = "moderate"
	RainHeavy     RainIntensity = "heavy"
	RainVeryHeavy RainIntensity = "very_heavy"
	RainExtreme   RainIntensity = "extreme"
)

var rainIntensityRank = map[RainIntensity]int{
	RainNone:      0,
	RainLight:     1,
	RainModerate:  2,
	RainHeavy:     3,
	RainVeryHeavy: 4,
	RainExtreme:   5,
}

// Rank 强度序号，用于单调性比较
func (i RainIntensity) Rank() int { return rainIntensityRank[i] }

// Hazardous 是否处于危险区间（very_heavy 及以上）
func (i RainIntensity) Hazardous() bool { return i.Rank() >= rainIntensityRank[RainVeryHeavy] }

// WaterLevelReading 水位读数（对应 water_level_readings 表，只追加不修改）
type WaterLevelReading struct {
	ID               int64            `db:"id"` // BIGSERIAL
	SensorID         string           `db:"sensor_id"`
	Timestamp        time.Time        `db:"timestamp"`
	Level            float64          `db:"level"` // 米
	Status           WaterLevelStatus `db:"status"`
	RateOfChange     *float64         `db:"rate_of_change"` // 米/小时，首条读数为 NULL
	IsValid          bool             `db:"is_valid"`
	AlertTriggered   bool             `db:"alert_triggered"`
	AlertTriggeredAt *time.Time       `db:"alert_triggered_at"`
	CreatedAt        time.Time        `db:"created_at"`
}

// RainfallReading 降雨读数（对应 rainfall_readings 表，只追加不修改）
type RainfallReading struct {
	ID               int64         `db:"id"`
	SensorID         string        `db:"sensor_id"`
	Timestamp        time.Time     `db:"timestamp"`
	Rainfall         float64       `db:"rainfall"` // 毫米/采样周期
	PeriodStart      time.Time     `db:"period_start"`
	PeriodEnd        time.Time     `db:"period_end"`
	Intensity        RainIntensity `db:"intensity"`
	HourlyCumulative float64       `db:"hourly_cumulative"`
	DailyCumulative  float64       `db:"daily_cumulative"`
	IsValid          bool          `db:"is_valid"`
	AlertTriggered   bool          `db:"alert_triggered"`
	CreatedAt        time.Time     `db:"created_at"`
}

// WeatherReading 气象读数（对应 weather_readings 表，只追加不修改）
// 所有观测字段均可缺省，允许部分遥测
type WeatherReading struct {
	ID            int64     `db:"id"`
	SensorID      string    `db:"sensor_id"`
	Timestamp     time.Time `db:"timestamp"`
	Temperature   *float64  `db:"temperature"`    // °C
	Humidity      *float64  `db:"humidity"`       // %
	Pressure      *float64  `db:"pressure"`       // hPa
	WindSpeed     *float64  `db:"wind_speed"`     // m/s
	WindDirection *float64  `db:"wind_direction"` // 度
	IsValid       bool      `db:"is_valid"`
	CreatedAt     time.Time `db:"created_at"`
}

// ReadingHistory 历史查询结果（按传感器类型只填充其中一个切片）
type ReadingHistory struct {
	Kind       SensorKind           `json:"kind"`
	WaterLevel []*WaterLevelReading `json:"waterLevel,omitempty"`
	Rainfall   []*RainfallReading   `json:"rainfall,omitempty"`
	Weather    []*WeatherReading    `json:"weather,omitempty"`
}
