package auth

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// UserStore 内存用户表
// 当前只有一个内置管理员账号，密码用bcrypt存散列
type UserStore struct {
	mu    sync.RWMutex
	users map[string]string // username -> bcrypt hash
}

// NewUserStore 创建用户表并注入内置账号
func NewUserStore(adminPassword string) (*UserStore, error) {
	if adminPassword == "" {
		adminPassword = "password123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &UserStore{
		users: map[string]string{"admin": string(hash)},
	}, nil
}

// Authenticate 校验用户名密码，成功返回true
func (s *UserStore) Authenticate(username, password string) bool {
	s.mu.RLock()
	hash, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// AddUser 注册用户，已存在时覆盖密码
func (s *UserStore) AddUser(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.users[username] = string(hash)
	s.mu.Unlock()
	return nil
}
