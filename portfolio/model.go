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

package portfolio

// 写入的时候零值字段不会发送，由数据库的默认值决定，
// 例如 visible 默认为 true

type Photo struct {
	ID          int64  `json:"id,omitempty"`
	Titre       string `json:"titre"`
	Description string `json:"description,omitempty"`
	URLImage    string `json:"url_image,omitempty"`
	Categorie   string `json:"categorie,omitempty"`
	AltText     string `json:"alt_text,omitempty"`
	Visible     bool   `json:"visible,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// PhotoInput is what the admin form provides. The image URL is computed.
type PhotoInput struct {
	Titre       string
	Description string
	Categorie   string
	AltText     string
}

type Category struct {
	ID          int64  `json:"id,omitempty"`
	Nom         string `json:"nom"`
	Description string `json:"description,omitempty"`
}

type Testimonial struct {
	ID         int64  `json:"id,omitempty"`
	Auteur     string `json:"auteur"`
	Message    string `json:"message"`
	Note       int    `json:"note,omitempty"`
	Poste      string `json:"poste,omitempty"`
	Entreprise string `json:"entreprise,omitempty"`
	Visible    bool   `json:"visible,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

type Service struct {
	ID          int64  `json:"id,omitempty"`
	Titre       string `json:"titre"`
	Description string `json:"description,omitempty"`
	Icone       string `json:"icone,omitempty"`
	Ordre       int    `json:"ordre"`
	Visible     bool   `json:"visible,omitempty"`
}

type Article struct {
	ID        int64  `json:"id,omitempty"`
	Titre     string `json:"titre"`
	Extrait   string `json:"extrait,omitempty"`
	Contenu   string `json:"contenu,omitempty"`
	URLImage  string `json:"url_image,omitempty"`
	Visible   bool   `json:"visible,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Overview is everything the home page needs.
type Overview struct {
	Photos       []Photo
	Testimonials []Testimonial
	Services     []Service
	Articles     []Article
}
