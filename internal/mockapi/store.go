package mockapi

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	// ErrNotFound возвращается, когда запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate возвращается при повторной регистрации имени пользователя.
	ErrDuplicate = errors.New("duplicate")
	// ErrBadCredentials возвращается при неверной паре логин/пароль.
	ErrBadCredentials = errors.New("bad credentials")
)

// OpenDB открывает базу выбранным драйвером.
func OpenDB(cfg DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite && strings.Contains(cfg.DSN, ":memory:") {
		// у каждого соединения своя in-memory база
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Store хранит пользователей и товары в gorm.
type Store struct {
	db *gorm.DB
}

// NewStore выполняет миграции и возвращает Store.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&User{}, &Product{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// CreateUser сохраняет пользователя с bcrypt-хешем пароля.
func (s *Store) CreateUser(ctx context.Context, username, password, role string) (User, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return User{}, err
	}
	if count > 0 {
		return User{}, ErrDuplicate
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	user := User{Username: username, PasswordHash: string(hash), Role: role}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return User{}, err
	}
	return user, nil
}

// EnsureUser создаёт пользователя, если его ещё нет.
func (s *Store) EnsureUser(ctx context.Context, username, password, role string) error {
	_, err := s.CreateUser(ctx, username, password, role)
	if errors.Is(err, ErrDuplicate) {
		return nil
	}
	return err
}

// Authenticate проверяет пароль пользователя.
func (s *Store) Authenticate(ctx context.Context, username, password string) (User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrBadCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return User{}, ErrBadCredentials
	}
	return user, nil
}

// ListProducts возвращает все товары по возрастанию ID.
func (s *Store) ListProducts(ctx context.Context) ([]Product, error) {
	products := []Product{}
	if err := s.db.WithContext(ctx).Order("id").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// CreateProduct добавляет товар.
func (s *Store) CreateProduct(ctx context.Context, p Product) (Product, error) {
	p.ID = 0
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return Product{}, err
	}
	return p, nil
}

// UpdateProduct заменяет поля товара.
func (s *Store) UpdateProduct(ctx context.Context, id int64, p Product) (Product, error) {
	var existing Product
	err := s.db.WithContext(ctx).First(&existing, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	existing.Name = p.Name
	existing.Description = p.Description
	existing.Price = p.Price
	existing.Quantity = p.Quantity
	if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return Product{}, err
	}
	return existing, nil
}

// DeleteProduct удаляет товар.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
