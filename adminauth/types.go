// Copyright 2021 ecodeclub
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package adminauth

import "time"

type Admin struct {
	ID           int64  `json:"id,omitempty"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash,omitempty"`
	Nom          string `json:"nom,omitempty"`
	Role         string `json:"role,omitempty"`
	Actif        bool   `json:"actif"`
	// 下面两个字段由数据库维护
	DerniereConnexion string `json:"derniere_connexion,omitempty"`
	CreatedAt         string `json:"created_at,omitempty"`
}

type Session struct {
	ID        int64     `json:"id,omitempty"`
	AdminID   int64     `json:"admin_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	// Admin 只有在关联查询的时候才有值
	Admin *Admin `json:"admins,omitempty"`
}

type AuditLog struct {
	ID        int64          `json:"id,omitempty"`
	AdminID   int64          `json:"admin_id"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
}

type LoginRequest struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

type LoginResult struct {
	Admin   Admin
	Session Session
}

type NewAdmin struct {
	Email    string
	Password string
	Nom      string
	// Role 默认是 admin
	Role string
}

// Stats is whatever get_admin_stats returns for its first row.
type Stats map[string]any
