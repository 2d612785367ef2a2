// Package docs содержит описание API в формате Swagger 2.0 для /docs.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
	"schemes": {{ marshal .Schemes }},
	"swagger": "2.0",
	"info": {
		"description": "{{escape .Description}}",
		"title": "{{.Title}}",
		"contact": {},
		"version": "{{.Version}}"
	},
	"host": "{{.Host}}",
	"basePath": "{{.BasePath}}",
	"paths": {
		"/health": {
			"get": {
				"tags": [
					"Health"
				],
				"summary": "Проверка готовности",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"503": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				}
			}
		},
		"/islands": {
			"get": {
				"tags": [
					"Catalog"
				],
				"summary": "Острова",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				}
			}
		},
		"/categories": {
			"get": {
				"tags": [
					"Catalog"
				],
				"summary": "Категории бизнеса",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				}
			}
		},
		"/register": {
			"post": {
				"tags": [
					"Accounts"
				],
				"summary": "Регистрация",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"409": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"422": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/accounts.RegisterRequest"
						}
					}
				]
			}
		},
		"/verify-email": {
			"get": {
				"tags": [
					"Accounts"
				],
				"summary": "Подтверждение email",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				}
			}
		},
		"/resend-verification": {
			"post": {
				"tags": [
					"Accounts"
				],
				"summary": "Повторная отправка письма подтверждения",
				"produces": [
					"application/json"
				],
				"responses": {
					"202": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"422": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/accounts.EmailRequest"
						}
					}
				]
			}
		},
		"/login": {
			"post": {
				"tags": [
					"Accounts"
				],
				"summary": "Вход",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"401": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"403": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/accounts.LoginRequest"
						}
					}
				]
			}
		},
		"/me": {
			"get": {
				"tags": [
					"Accounts"
				],
				"summary": "Текущая учётная запись",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"401": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/businesses": {
			"get": {
				"tags": [
					"Businesses"
				],
				"summary": "Каталог бизнесов",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				}
			},
			"post": {
				"tags": [
					"Businesses"
				],
				"summary": "Создать профиль бизнеса",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"403": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"409": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"422": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/models.BusinessInput"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/businesses/mine": {
			"get": {
				"tags": [
					"Businesses"
				],
				"summary": "Профиль текущего владельца",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/businesses/{id}": {
			"get": {
				"tags": [
					"Businesses"
				],
				"summary": "Профиль бизнеса",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/businesses/{id}/photos": {
			"post": {
				"tags": [
					"Businesses"
				],
				"summary": "Загрузить фотографию",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"403": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"502": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"consumes": [
					"multipart/form-data"
				],
				"parameters": [
					{
						"type": "string",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"type": "file",
						"name": "file",
						"in": "formData",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/businesses/{id}/reviews": {
			"get": {
				"tags": [
					"Reviews"
				],
				"summary": "Отзывы о бизнесе",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"name": "id",
						"in": "path",
						"required": true
					}
				]
			}
		},
		"/businesses/{id}/appointments": {
			"get": {
				"tags": [
					"Appointments"
				],
				"summary": "Записи бизнеса",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"403": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/reviews": {
			"post": {
				"tags": [
					"Reviews"
				],
				"summary": "Оставить отзыв",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"422": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/models.ReviewInput"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/appointments": {
			"post": {
				"tags": [
					"Appointments"
				],
				"summary": "Записаться на приём",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"403": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/models.AppointmentInput"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/appointments/{id}/status": {
			"patch": {
				"tags": [
					"Appointments"
				],
				"summary": "Сменить статус записи",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"403": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"409": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/appointments.StatusRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/subscriptions": {
			"post": {
				"tags": [
					"Subscriptions"
				],
				"summary": "Оформить подписку",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"403": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"409": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"502": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/subscriptions/execute": {
			"post": {
				"tags": [
					"Subscriptions"
				],
				"summary": "Подтвердить подписку",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"409": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"502": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/subscriptions.ExecuteRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/subscriptions/cancel": {
			"post": {
				"tags": [
					"Subscriptions"
				],
				"summary": "Отменить подписку",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"502": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/subscriptions/status": {
			"get": {
				"tags": [
					"Subscriptions"
				],
				"summary": "Состояние подписки",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/webhooks/paypal": {
			"post": {
				"tags": [
					"Subscriptions"
				],
				"summary": "Вебхук PayPal",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"401": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				}
			}
		},
		"/events": {
			"get": {
				"tags": [
					"Listings"
				],
				"summary": "Список мероприятий",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				}
			},
			"post": {
				"tags": [
					"Listings"
				],
				"summary": "Создать мероприятие",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"403": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/models.ListingInput"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/rentals": {
			"get": {
				"tags": [
					"Listings"
				],
				"summary": "Список аренды",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					}
				}
			},
			"post": {
				"tags": [
					"Listings"
				],
				"summary": "Создать объявление об аренде",
				"produces": [
					"application/json"
				],
				"responses": {
					"201": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"403": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/models.ListingInput"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/listings/{id}/pay": {
			"post": {
				"tags": [
					"Listings"
				],
				"summary": "Оплатить публикацию",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"403": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"409": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"502": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/listings/{id}/execute": {
			"post": {
				"tags": [
					"Listings"
				],
				"summary": "Подтвердить оплату публикации",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"400": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"502": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"type": "string",
						"name": "id",
						"in": "path",
						"required": true
					},
					{
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/listings.ExecuteRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/admin/businesses/pending": {
			"get": {
				"tags": [
					"Admin"
				],
				"summary": "Профили на модерации",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"403": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/admin/businesses/{id}/approve": {
			"put": {
				"tags": [
					"Admin"
				],
				"summary": "Одобрить профиль",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/admin/businesses/{id}/reject": {
			"put": {
				"tags": [
					"Admin"
				],
				"summary": "Отклонить профиль",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/admin/businesses/{id}/suspend": {
			"put": {
				"tags": [
					"Admin"
				],
				"summary": "Заблокировать профиль",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/admin/reviews/pending": {
			"get": {
				"tags": [
					"Admin"
				],
				"summary": "Отзывы на модерации",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"403": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/admin/reviews/{id}/approve": {
			"put": {
				"tags": [
					"Admin"
				],
				"summary": "Одобрить отзыв",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"parameters": [
					{
						"type": "string",
						"name": "id",
						"in": "path",
						"required": true
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		},
		"/admin/accounts/promote": {
			"put": {
				"tags": [
					"Admin"
				],
				"summary": "Выдать роль администратора",
				"produces": [
					"application/json"
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/response.Response"
						}
					},
					"404": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					},
					"422": {
						"description": "Error",
						"schema": {
							"$ref": "#/definitions/response.ErrorResponse"
						}
					}
				},
				"consumes": [
					"application/json"
				],
				"parameters": [
					{
						"name": "request",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/admin.PromoteRequest"
						}
					}
				],
				"security": [
					{
						"BearerAuth": []
					}
				]
			}
		}
	},
	"definitions": {
		"response.Response": {
			"type": "object",
			"properties": {
				"status": {
					"type": "string"
				},
				"error": {
					"type": "string"
				},
				"data": {
					"type": "object"
				}
			}
		},
		"response.ErrorResponse": {
			"type": "object",
			"properties": {
				"status": {
					"type": "string",
					"example": "Error"
				},
				"error": {
					"type": "string",
					"example": "invalid request body"
				}
			}
		},
		"accounts.RegisterRequest": {
			"type": "object",
			"properties": {
				"email": {
					"type": "string"
				},
				"password": {
					"type": "string"
				},
				"first_name": {
					"type": "string"
				},
				"last_name": {
					"type": "string"
				},
				"phone": {
					"type": "string"
				},
				"role": {
					"type": "string",
					"enum": [
						"customer",
						"business_owner"
					]
				}
			},
			"required": [
				"email",
				"password",
				"first_name",
				"last_name"
			]
		},
		"accounts.LoginRequest": {
			"type": "object",
			"properties": {
				"email": {
					"type": "string"
				},
				"password": {
					"type": "string"
				}
			},
			"required": [
				"email",
				"password"
			]
		},
		"accounts.EmailRequest": {
			"type": "object",
			"properties": {
				"email": {
					"type": "string"
				}
			},
			"required": [
				"email"
			]
		},
		"admin.PromoteRequest": {
			"type": "object",
			"properties": {
				"email": {
					"type": "string"
				}
			},
			"required": [
				"email"
			]
		},
		"appointments.StatusRequest": {
			"type": "object",
			"properties": {
				"status": {
					"type": "string",
					"enum": [
						"confirmed",
						"completed",
						"cancelled"
					]
				}
			},
			"required": [
				"status"
			]
		},
		"subscriptions.ExecuteRequest": {
			"type": "object",
			"properties": {
				"token": {
					"type": "string"
				}
			},
			"required": [
				"token"
			]
		},
		"listings.ExecuteRequest": {
			"type": "object",
			"properties": {
				"order_id": {
					"type": "string"
				}
			},
			"required": [
				"order_id"
			]
		},
		"models.BusinessInput": {
			"type": "object",
			"properties": {
				"business_name": {
					"type": "string"
				},
				"description": {
					"type": "string"
				},
				"category": {
					"type": "string"
				},
				"island": {
					"type": "string"
				},
				"address": {
					"type": "string"
				},
				"phone": {
					"type": "string"
				},
				"email": {
					"type": "string"
				},
				"website": {
					"type": "string"
				},
				"business_hours": {
					"type": "object",
					"additionalProperties": {
						"type": "string"
					}
				},
				"services": {
					"type": "array",
					"items": {
						"type": "string"
					}
				},
				"license_number": {
					"type": "string"
				},
				"accepts_appointments": {
					"type": "boolean"
				},
				"appointment_duration": {
					"type": "integer"
				}
			},
			"required": [
				"business_name",
				"description",
				"category",
				"island",
				"address",
				"phone",
				"email",
				"license_number"
			]
		},
		"models.ReviewInput": {
			"type": "object",
			"properties": {
				"business_id": {
					"type": "string"
				},
				"rating": {
					"type": "integer",
					"minimum": 1,
					"maximum": 5
				},
				"comment": {
					"type": "string"
				},
				"is_anonymous": {
					"type": "boolean"
				},
				"customer_name": {
					"type": "string"
				}
			},
			"required": [
				"business_id",
				"rating",
				"comment"
			]
		},
		"models.AppointmentInput": {
			"type": "object",
			"properties": {
				"business_id": {
					"type": "string"
				},
				"appointment_date": {
					"type": "string",
					"format": "date-time"
				},
				"service": {
					"type": "string"
				},
				"notes": {
					"type": "string"
				}
			},
			"required": [
				"business_id",
				"appointment_date",
				"service"
			]
		},
		"models.ListingInput": {
			"type": "object",
			"properties": {
				"title": {
					"type": "string"
				},
				"description": {
					"type": "string"
				},
				"island": {
					"type": "string"
				},
				"location": {
					"type": "string"
				},
				"starts_at": {
					"type": "string",
					"format": "date-time"
				},
				"available_from": {
					"type": "string",
					"format": "date-time"
				},
				"price": {
					"type": "string"
				}
			},
			"required": [
				"title",
				"description",
				"island",
				"location"
			]
		}
	},
	"securityDefinitions": {
		"BearerAuth": {
			"description": "Type \"Bearer\" followed by a space and JWT token.",
			"type": "apiKey",
			"name": "Authorization",
			"in": "header"
		}
	}
}`

// SwaggerInfo метаданные описания API.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "The Direct Tree API",
	Description:      "Каталог бизнесов Багамских островов: профили, отзывы, записи на приём, подписки и объявления.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
