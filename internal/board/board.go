package board

import (
	"github.com/wfunc/tycoon-game/internal/models"
)

// 静态棋盘目录：40格地块定义与位置查询。
// 数据为标准美版棋盘，作为目录种子写入properties表。

var squares = []models.Property{
	{ID: 1, Position: 0, Name: "GO", Type: models.PropertyTypeCorner},
	{ID: 2, Position: 1, Name: "Mediterranean Avenue", Type: models.PropertyTypeStreet, ColorGroup: "brown", Price: 60, RentBase: 2, Rent1: 10, Rent2: 30, Rent3: 90, Rent4: 160, RentHotel: 250, HouseCost: 50},
	{ID: 3, Position: 2, Name: "Community Chest", Type: models.PropertyTypeChest},
	{ID: 4, Position: 3, Name: "Baltic Avenue", Type: models.PropertyTypeStreet, ColorGroup: "brown", Price: 60, RentBase: 4, Rent1: 20, Rent2: 60, Rent3: 180, Rent4: 320, RentHotel: 450, HouseCost: 50},
	{ID: 5, Position: 4, Name: "Income Tax", Type: models.PropertyTypeTax, TaxAmount: 200},
	{ID: 6, Position: 5, Name: "Reading Railroad", Type: models.PropertyTypeRailroad, ColorGroup: "railroad", Price: 200},
	{ID: 7, Position: 6, Name: "Oriental Avenue", Type: models.PropertyTypeStreet, ColorGroup: "lightblue", Price: 100, RentBase: 6, Rent1: 30, Rent2: 90, Rent3: 270, Rent4: 400, RentHotel: 550, HouseCost: 50},
	{ID: 8, Position: 7, Name: "Chance", Type: models.PropertyTypeChance},
	{ID: 9, Position: 8, Name: "Vermont Avenue", Type: models.PropertyTypeStreet, ColorGroup: "lightblue", Price: 100, RentBase: 6, Rent1: 30, Rent2: 90, Rent3: 270, Rent4: 400, RentHotel: 550, HouseCost: 50},
	{ID: 10, Position: 9, Name: "Connecticut Avenue", Type: models.PropertyTypeStreet, ColorGroup: "lightblue", Price: 120, RentBase: 8, Rent1: 40, Rent2: 100, Rent3: 300, Rent4: 450, RentHotel: 600, HouseCost: 50},
	{ID: 11, Position: 10, Name: "Jail / Just Visiting", Type: models.PropertyTypeCorner},
	{ID: 12, Position: 11, Name: "St. Charles Place", Type: models.PropertyTypeStreet, ColorGroup: "pink", Price: 140, RentBase: 10, Rent1: 50, Rent2: 150, Rent3: 450, Rent4: 625, RentHotel: 750, HouseCost: 100},
	{ID: 13, Position: 12, Name: "Electric Company", Type: models.PropertyTypeUtility, ColorGroup: "utility", Price: 150},
	{ID: 14, Position: 13, Name: "States Avenue", Type: models.PropertyTypeStreet, ColorGroup: "pink", Price: 140, RentBase: 10, Rent1: 50, Rent2: 150, Rent3: 450, Rent4: 625, RentHotel: 750, HouseCost: 100},
	{ID: 15, Position: 14, Name: "Virginia Avenue", Type: models.PropertyTypeStreet, ColorGroup: "pink", Price: 160, RentBase: 12, Rent1: 60, Rent2: 180, Rent3: 500, Rent4: 700, RentHotel: 900, HouseCost: 100},
	{ID: 16, Position: 15, Name: "Pennsylvania Railroad", Type: models.PropertyTypeRailroad, ColorGroup: "railroad", Price: 200},
	{ID: 17, Position: 16, Name: "St. James Place", Type: models.PropertyTypeStreet, ColorGroup: "orange", Price: 180, RentBase: 14, Rent1: 70, Rent2: 200, Rent3: 550, Rent4: 750, RentHotel: 950, HouseCost: 100},
	{ID: 18, Position: 17, Name: "Community Chest", Type: models.PropertyTypeChest},
	{ID: 19, Position: 18, Name: "Tennessee Avenue", Type: models.PropertyTypeStreet, ColorGroup: "orange", Price: 180, RentBase: 14, Rent1: 70, Rent2: 200, Rent3: 550, Rent4: 750, RentHotel: 950, HouseCost: 100},
	{ID: 20, Position: 19, Name: "New York Avenue", Type: models.PropertyTypeStreet, ColorGroup: "orange", Price: 200, RentBase: 16, Rent1: 80, Rent2: 220, Rent3: 600, Rent4: 800, RentHotel: 1000, HouseCost: 100},
	{ID: 21, Position: 20, Name: "Free Parking", Type: models.PropertyTypeCorner},
	{ID: 22, Position: 21, Name: "Kentucky Avenue", Type: models.PropertyTypeStreet, ColorGroup: "red", Price: 220, RentBase: 18, Rent1: 90, Rent2: 250, Rent3: 700, Rent4: 875, RentHotel: 1050, HouseCost: 150},
	{ID: 23, Position: 22, Name: "Chance", Type: models.PropertyTypeChance},
	{ID: 24, Position: 23, Name: "Indiana Avenue", Type: models.PropertyTypeStreet, ColorGroup: "red", Price: 220, RentBase: 18, Rent1: 90, Rent2: 250, Rent3: 700, Rent4: 875, RentHotel: 1050, HouseCost: 150},
	{ID: 25, Position: 24, Name: "Illinois Avenue", Type: models.PropertyTypeStreet, ColorGroup: "red", Price: 240, RentBase: 20, Rent1: 100, Rent2: 300, Rent3: 750, Rent4: 925, RentHotel: 1100, HouseCost: 150},
	{ID: 26, Position: 25, Name: "B&O Railroad", Type: models.PropertyTypeRailroad, ColorGroup: "railroad", Price: 200},
	{ID: 27, Position: 26, Name: "Atlantic Avenue", Type: models.PropertyTypeStreet, ColorGroup: "yellow", Price: 260, RentBase: 22, Rent1: 110, Rent2: 330, Rent3: 800, Rent4: 975, RentHotel: 1150, HouseCost: 150},
	{ID: 28, Position: 27, Name: "Ventnor Avenue", Type: models.PropertyTypeStreet, ColorGroup: "yellow", Price: 260, RentBase: 22, Rent1: 110, Rent2: 330, Rent3: 800, Rent4: 975, RentHotel: 1150, HouseCost: 150},
	{ID: 29, Position: 28, Name: "Water Works", Type: models.PropertyTypeUtility, ColorGroup: "utility", Price: 150},
	{ID: 30, Position: 29, Name: "Marvin Gardens", Type: models.PropertyTypeStreet, ColorGroup: "yellow", Price: 280, RentBase: 24, Rent1: 120, Rent2: 360, Rent3: 850, Rent4: 1025, RentHotel: 1200, HouseCost: 150},
	{ID: 31, Position: 30, Name: "Go To Jail", Type: models.PropertyTypeCorner},
	{ID: 32, Position: 31, Name: "Pacific Avenue", Type: models.PropertyTypeStreet, ColorGroup: "green", Price: 300, RentBase: 26, Rent1: 130, Rent2: 390, Rent3: 900, Rent4: 1100, RentHotel: 1275, HouseCost: 200},
	{ID: 33, Position: 32, Name: "North Carolina Avenue", Type: models.PropertyTypeStreet, ColorGroup: "green", Price: 300, RentBase: 26, Rent1: 130, Rent2: 390, Rent3: 900, Rent4: 1100, RentHotel: 1275, HouseCost: 200},
	{ID: 34, Position: 33, Name: "Community Chest", Type: models.PropertyTypeChest},
	{ID: 35, Position: 34, Name: "Pennsylvania Avenue", Type: models.PropertyTypeStreet, ColorGroup: "green", Price: 320, RentBase: 28, Rent1: 150, Rent2: 450, Rent3: 1000, Rent4: 1200, RentHotel: 1400, HouseCost: 200},
	{ID: 36, Position: 35, Name: "Short Line", Type: models.PropertyTypeRailroad, ColorGroup: "railroad", Price: 200},
	{ID: 37, Position: 36, Name: "Chance", Type: models.PropertyTypeChance},
	{ID: 38, Position: 37, Name: "Park Place", Type: models.PropertyTypeStreet, ColorGroup: "darkblue", Price: 350, RentBase: 35, Rent1: 175, Rent2: 500, Rent3: 1100, Rent4: 1300, RentHotel: 1500, HouseCost: 200},
	{ID: 39, Position: 38, Name: "Luxury Tax", Type: models.PropertyTypeTax, TaxAmount: 100},
	{ID: 40, Position: 39, Name: "Boardwalk", Type: models.PropertyTypeStreet, ColorGroup: "darkblue", Price: 400, RentBase: 50, Rent1: 200, Rent2: 600, Rent3: 1400, Rent4: 1700, RentHotel: 2000, HouseCost: 200},
}

var byPosition map[int]*models.Property

func init() {
	byPosition = make(map[int]*models.Property, len(squares))
	for i := range squares {
		byPosition[squares[i].Position] = &squares[i]
	}
}

// Squares 返回全部地块定义（目录种子数据）
func Squares() []models.Property {
	out := make([]models.Property, len(squares))
	copy(out, squares)
	return out
}

// SquareAt 按位置取地块定义
func SquareAt(position int) (*models.Property, bool) {
	p, ok := byPosition[position]
	return p, ok
}

// Normalize 将任意位移结果折回0-39环
func Normalize(position int) int {
	p := position % models.BoardSize
	if p < 0 {
		p += models.BoardSize
	}
	return p
}

// 车站与公用事业位置（顺时针序）
var (
	railroadPositions = []int{5, 15, 25, 35}
	utilityPositions  = []int{12, 28}
)

// RailroadPositions 返回全部车站位置
func RailroadPositions() []int {
	return append([]int(nil), railroadPositions...)
}

// UtilityPositions 返回全部公用事业位置
func UtilityPositions() []int {
	return append([]int(nil), utilityPositions...)
}

// NearestRailroad 从给定位置沿前进方向最近的车站
func NearestRailroad(from int) int {
	return nearestAhead(from, railroadPositions)
}

// NearestUtility 从给定位置沿前进方向最近的公用事业
func NearestUtility(from int) int {
	return nearestAhead(from, utilityPositions)
}

func nearestAhead(from int, targets []int) int {
	best := -1
	bestDist := models.BoardSize + 1
	for _, t := range targets {
		dist := (t - from + models.BoardSize) % models.BoardSize
		if dist == 0 {
			dist = models.BoardSize
		}
		if dist < bestDist {
			bestDist = dist
			best = t
		}
	}
	return best
}
