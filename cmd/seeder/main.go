package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pfe-match/pfe-match-api/internal/models"
	"github.com/pfe-match/pfe-match-api/internal/repository"
	"github.com/pfe-match/pfe-match-api/internal/service"
	"github.com/pfe-match/pfe-match-api/pkg/config"
	"github.com/pfe-match/pfe-match-api/pkg/database"
	"github.com/pfe-match/pfe-match-api/pkg/logger"
)

// Seeder loads the cohort roster and subject catalog from CSV files, and can
// provision an initial admin account.
//
// students.csv: matricule,first_name,last_name,specialty,average,email,phone
// subjects.csv: code,title,specialty,category,supervisor,capacity,description
func main() {
	studentsPath := flag.String("students", "", "path to students CSV")
	subjectsPath := flag.String("subjects", "", "path to subjects CSV")
	adminEmail := flag.String("admin-email", "", "email for the initial admin account")
	adminPassword := flag.String("admin-password", "", "password for the initial admin account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if *studentsPath != "" {
		count, err := seedStudents(ctx, repository.NewStudentRepository(db), *studentsPath)
		if err != nil {
			logr.Sugar().Fatalw("failed to seed students", "error", err)
		}
		logr.Sugar().Infow("students seeded", "count", count)
	}

	if *subjectsPath != "" {
		count, err := seedSubjects(ctx, repository.NewSubjectRepository(db), *subjectsPath)
		if err != nil {
			logr.Sugar().Fatalw("failed to seed subjects", "error", err)
		}
		logr.Sugar().Infow("subjects seeded", "count", count)
	}

	if *adminEmail != "" && *adminPassword != "" {
		if err := seedAdmin(ctx, repository.NewUserRepository(db), *adminEmail, *adminPassword); err != nil {
			logr.Sugar().Fatalw("failed to seed admin account", "error", err)
		}
		logr.Sugar().Infow("admin account ready", "email", *adminEmail)
	}
}

func seedStudents(ctx context.Context, repo *repository.StudentRepository, path string) (int, error) {
	records, err := readCSV(path)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, record := range records {
		if len(record) < 5 {
			continue
		}
		average, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
		if err != nil {
			return count, err
		}
		student := &models.Student{
			ID:        uuid.NewString(),
			Matricule: strings.TrimSpace(record[0]),
			FirstName: strings.TrimSpace(record[1]),
			LastName:  strings.TrimSpace(record[2]),
			Specialty: strings.TrimSpace(record[3]),
			Average:   average,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		if len(record) > 5 {
			student.Email = strings.TrimSpace(record[5])
		}
		if len(record) > 6 {
			student.Phone = strings.TrimSpace(record[6])
		}
		if err := repo.Upsert(ctx, student); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func seedSubjects(ctx context.Context, repo *repository.SubjectRepository, path string) (int, error) {
	records, err := readCSV(path)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, record := range records {
		if len(record) < 6 {
			continue
		}
		code := strings.ToUpper(strings.TrimSpace(record[0]))
		exists, err := repo.ExistsByCode(ctx, code, "")
		if err != nil {
			return count, err
		}
		if exists {
			continue
		}
		capacity, err := strconv.Atoi(strings.TrimSpace(record[5]))
		if err != nil {
			return count, err
		}
		subject := &models.Subject{
			ID:         uuid.NewString(),
			Code:       code,
			Title:      strings.TrimSpace(record[1]),
			Specialty:  strings.TrimSpace(record[2]),
			Category:   models.NormalizeCategory(record[3]),
			Supervisor: strings.TrimSpace(record[4]),
			Capacity:   capacity,
			Available:  true,
			CreatedAt:  time.Now().UTC(),
			UpdatedAt:  time.Now().UTC(),
		}
		if len(record) > 6 {
			subject.Description = strings.TrimSpace(record[6])
		}
		if err := repo.Create(ctx, subject); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func seedAdmin(ctx context.Context, repo *repository.UserRepository, email, password string) error {
	hash, err := service.HashPassword(password)
	if err != nil {
		return err
	}
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		FullName:     "Administrator",
		Role:         models.RoleAdmin,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	return repo.Create(ctx, user)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var records [][]string
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(record[0]), "matricule") ||
				strings.EqualFold(strings.TrimSpace(record[0]), "code") {
				continue
			}
		}
		records = append(records, record)
	}
	return records, nil
}
