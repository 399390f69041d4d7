package domain

import "time"

// SensorKind 传感器类型
type SensorKind string

const (
	KindWaterLevel SensorKind = "water_level"
	KindRainfall   SensorKind = "rainfall"
	KindWeather    SensorKind = "weather"
)

// Valid 检查传感器类型是否合法
func (k SensorKind) Valid() bool {
	switch k {
	case KindWaterLevel, KindRainfall, KindWeather:
		return true
	}
	return false
}

// SensorStatus 传感器生命周期状态
type SensorStatus string

const (
	SensorActive      SensorStatus = "active"
	SensorInactive    SensorStatus = "inactive"
	SensorMaintenance SensorStatus = "maintenance"
	SensorOffline     SensorStatus = "offline"
)

// Valid 检查生命周期状态是否合法
func (s SensorStatus) Valid() bool {
	switch s {
	case SensorActive, SensorInactive, SensorMaintenance, SensorOffline:
		return true
	}
	return false
}

// WaterThresholds 水位报警阈值（米，严格递增）
type WaterThresholds struct {
	Normal   float64
	Warning  float64
	Danger   float64
	Critical float64
}

// Increasing 检查阈值是否严格递增
func (t WaterThresholds) Increasing() bool {
	return t.Normal < t.Warning && t.Warning < t.Danger && t.Danger < t.Critical
}

// RainThresholds 降雨强度阈值（毫米/采样周期，严格递增）
type RainThresholds struct {
	Light     float64
	Moderate  float64
	Heavy     float64
	VeryHeavy float64
}

// Increasing 检查阈值是否严格递增
func (t RainThresholds) Increasing() bool {
	return t.Light < t.Moderate && t.Moderate < t.Heavy && t.Heavy < t.VeryHeavy
}

// Sensor 传感器领域模型（对应 sensors 表）
// 三种类型共用一张表，kind 字段区分；类型专属的阈值列对其它类型为 NULL
type Sensor struct {
	// 标识
	SensorID string     `db:"sensor_id"` // UUID
	DeviceID string     `db:"device_id"` // 外部设备标识，全局唯一
	Kind     SensorKind `db:"kind"`

	// 位置
	CityID    string  `db:"city_id"` // UUID, nullable（空字符串表示未绑定）
	LGAID     string  `db:"lga_id"`  // UUID, nullable
	Latitude  float64 `db:"latitude"`
	Longitude float64 `db:"longitude"`
	Address   string  `db:"address"`

	// 生命周期
	Status    SensorStatus `db:"status"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt time.Time    `db:"updated_at"`

	// 健康状态
	BatteryLevel        *int       `db:"battery_level"` // 0-100, nullable
	LastCommunicationAt *time.Time `db:"last_communication_at"`
	AlertsEnabled       bool       `db:"alerts_enabled"`

	// 水位阈值（kind = water_level）
	NormalLevel   *float64 `db:"normal_level"`
	WarningLevel  *float64 `db:"warning_level"`
	DangerLevel   *float64 `db:"danger_level"`
	CriticalLevel *float64 `db:"critical_level"`

	// 降雨阈值（kind = rainfall）
	LightThreshold     *float64 `db:"light_threshold"`
	ModerateThreshold  *float64 `db:"moderate_threshold"`
	HeavyThreshold     *float64 `db:"heavy_threshold"`
	VeryHeavyThreshold *float64 `db:"very_heavy_threshold"`

	// 冗余的"当前状态"快照（每条有效读数都会更新）
	LastReadingAt    *time.Time        `db:"last_reading_at"`
	CurrentLevel     *float64          `db:"current_level"`
	CurrentStatus    *WaterLevelStatus `db:"current_status"`
	CurrentRate      *float64          `db:"current_rate"` // 米/小时
	CurrentRainfall  *float64          `db:"current_rainfall"`
	CurrentIntensity *RainIntensity    `db:"current_intensity"`
	HourlyCumulative *float64          `db:"hourly_cumulative"`
	DailyCumulative  *float64          `db:"daily_cumulative"`
	Temperature      *float64          `db:"temperature"`
	Humidity         *float64          `db:"humidity"`
	Pressure         *float64          `db:"pressure"`
	WindSpeed        *float64          `db:"wind_speed"`
	WindDirection    *float64          `db:"wind_direction"`
}

// WaterThresholds 取出水位阈值（仅 kind = water_level 有意义）
func (s *Sensor) WaterThresholds() WaterThresholds {
	t := WaterThresholds{}
	if s.NormalLevel != nil {
		t.Normal = *s.NormalLevel
	}
	if s.WarningLevel != nil {
		t.Warning = *s.WarningLevel
	}
	if s.DangerLevel != nil {
		t.Danger = *s.DangerLevel
	}
	if s.CriticalLevel != nil {
		t.Critical = *s.CriticalLevel
	}
	return t
}

// RainThresholds 取出降雨阈值（仅 kind = rainfall 有意义）
func (s *Sensor) RainThresholds() RainThresholds {
	t := RainThresholds{}
	if s.LightThreshold != nil {
		t.Light = *s.LightThreshold
	}
	if s.ModerateThreshold != nil {
		t.Moderate = *s.ModerateThreshold
	}
	if s.HeavyThreshold != nil {
		t.Heavy = *s.HeavyThreshold
	}
	if s.VeryHeavyThreshold != nil {
		t.VeryHeavy = *s.VeryHeavyThreshold
	}
	return t
}
