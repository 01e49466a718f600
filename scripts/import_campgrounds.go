package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"campnest/internal/database"
	"campnest/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type catalogCampground struct {
	models.Campground `yaml:",inline"`
	Campsites         []models.Campsite `yaml:"campsites"`
}

type catalogFile struct {
	Campgrounds []catalogCampground `yaml:"campgrounds"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		catalogPath = flag.String("catalog", "configs/campgrounds.yaml", "path to campgrounds.yaml")
		dbPath      = flag.String("db", "./data/campnest.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*catalogPath)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	var catalog catalogFile
	if err = yaml.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	if len(catalog.Campgrounds) == 0 {
		return fmt.Errorf("no campgrounds in yaml")
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	campgrounds := 0
	campsites := 0
	for i := range catalog.Campgrounds {
		cg := &catalog.Campgrounds[i]
		if cg.ID == 0 || cg.Name == "" {
			continue
		}
		if err = db.UpsertCampground(ctx, &cg.Campground); err != nil {
			return fmt.Errorf("upsert campground %s: %w", cg.Name, err)
		}
		campgrounds++
		for j := range cg.Campsites {
			site := &cg.Campsites[j]
			site.CampgroundID = cg.ID
			if err = db.UpsertCampsite(ctx, site); err != nil {
				return fmt.Errorf("upsert campsite %s: %w", site.Name, err)
			}
			campsites++
		}
	}

	fmt.Printf("done: campgrounds=%d campsites=%d\n", campgrounds, campsites)
	return nil
}
