package main

import (
	"academy/config"
	"academy/database"
	"academy/models"
	"log"
)

// Catalog taxonomy seeded for a fresh deployment. Re-running is safe:
// existing rows are matched by name and left alone.
var categories = map[string][]string{
	"IT & Software": {
		"Web Development",
		"Data Science",
		"Cybersecurity",
		"Others",
	},
	"Business": {
		"E-Commerce",
		"Marketing",
		"Finance",
		"Others",
	},
	"Design": {
		"Graphic Design",
		"3D & Animation",
		"Interior Design",
		"Others",
	},
	"Health & Fitness": {
		"Fitness",
		"Yoga",
		"Nutrition",
		"Others",
	},
}

var levels = []string{"Beginner", "Intermediate", "Expert", "All levels"}

func main() {
	// Load config and connect to database
	config.LoadConfig()
	database.ConnectDb()

	inserted := 0
	skipped := 0

	for name, subNames := range categories {
		var category models.Category
		result := database.Database.Db.Where("name = ?", name).First(&category)

		if result.Error != nil {
			category = models.Category{Name: name}
			if err := database.Database.Db.Create(&category).Error; err != nil {
				log.Fatalf("Error inserting category %s: %v", name, err)
			}
			inserted++
		} else {
			skipped++
		}

		for _, subName := range subNames {
			var sub models.SubCategory
			result := database.Database.Db.
				Where("category_id = ? AND name = ?", category.ID, subName).
				First(&sub)

			if result.Error != nil {
				sub = models.SubCategory{CategoryID: category.ID, Name: subName}
				if err := database.Database.Db.Create(&sub).Error; err != nil {
					log.Fatalf("Error inserting sub-category %s: %v", subName, err)
				}
				inserted++
			} else {
				skipped++
			}
		}
	}

	for _, name := range levels {
		var level models.Level
		result := database.Database.Db.Where("name = ?", name).First(&level)

		if result.Error != nil {
			if err := database.Database.Db.Create(&models.Level{Name: name}).Error; err != nil {
				log.Fatalf("Error inserting level %s: %v", name, err)
			}
			inserted++
		} else {
			skipped++
		}
	}

	log.Printf("=== Seed Complete ===")
	log.Printf("Inserted: %d", inserted)
	log.Printf("Skipped (already present): %d", skipped)
}
