package utils

import (
	"os"
	"reflect"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/config"
)

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

// store instance by string key (product code, supplier code)
func StoreRedisByKey[T any](obj any, key string) error {
	typeName := GetTypeName[T]()
	return config.SetRedisObject(typeName+":"+key, &obj, GetCacheLifespan())
}

// retrieve instance by string key, dest should be a pointer
func RetrieveRedisByKey[T any](dest any, key string) (bool, error) {
	typeName := GetTypeName[T]()
	return config.GetRedisObject(typeName+":"+key, dest)
}

// drop cached instance after a mutation
func ClearRedisByKey[T any](key string) error {
	typeName := GetTypeName[T]()
	return config.RemoveRedisKey(typeName + ":" + key)
}
